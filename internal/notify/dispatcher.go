package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dibyendu78/Brain-O-Math/internal/platform/metrics"
)

// Sender delivers one rendered message. Implementations are expected to be
// slow and unreliable; the worker bounds and absorbs both.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log instead of delivering them.
// Used in development and wherever no mail relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("notification",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// Dispatcher queues events for background delivery. Enqueue never blocks:
// when the queue is full the event is dropped and counted, because a stalled
// mail relay must never stall a state transition.
type Dispatcher struct {
	inbox   chan Event
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewDispatcher(sender Sender, logger *slog.Logger, m *metrics.Metrics, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		inbox:   make(chan Event, queueSize),
		sender:  sender,
		logger:  logger,
		metrics: m,
		timeout: timeout,
	}
}

// Enqueue hands an event to the background worker. Returns false when the
// event was dropped.
func (d *Dispatcher) Enqueue(e Event) bool {
	select {
	case d.inbox <- e:
		return true
	default:
		d.logger.Warn("notification queue full, dropping event",
			"kind", string(e.Kind),
			"registration_id", e.RegistrationID,
		)
		if d.metrics != nil {
			d.metrics.NotificationsDropped.Inc()
		}
		return false
	}
}

// Run consumes the queue until ctx is cancelled. Each dispatch gets its own
// bounded deadline; failures are logged and counted only.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-d.inbox:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, Render(event)); err != nil {
		d.logger.Error("notification delivery failed",
			"kind", string(event.Kind),
			"registration_id", event.RegistrationID,
			"error", err,
		)
		if d.metrics != nil {
			d.metrics.NotificationsFailed.Inc()
		}
	}
}
