package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Publisher ships an event to an external sink (Kafka). Optional.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder accepts events from request handlers without blocking them and
// feeds the background worker. Recording is fail-open: a full inbox drops
// the event with a log line rather than delaying the transition.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewRecorder(logger *slog.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Recorder{
		inbox:  make(chan Event, queueSize),
		logger: logger,
	}
}

// Record queues an event, assigning its ID. Never blocks.
func (r *Recorder) Record(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.Warn("audit inbox full, dropping transition event",
			"registration_id", event.RegistrationID,
		)
	}
}

// Worker drains the recorder inbox into the store and, when configured, the
// publisher. Store failures are logged and do not stop the worker; the
// audit trail is best-effort by design.
type Worker struct {
	recorder  *Recorder
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewWorker(recorder *Recorder, store Store, publisher Publisher, logger *slog.Logger) *Worker {
	return &Worker{
		recorder:  recorder,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.recorder.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("audit append failed",
					"registration_id", event.RegistrationID,
					"error", err,
				)
			}
			if w.publisher != nil {
				if err := w.publisher.Publish(ctx, event); err != nil {
					w.logger.Error("audit publish failed",
						"registration_id", event.RegistrationID,
						"error", err,
					)
				}
			}
		}
	}
}
