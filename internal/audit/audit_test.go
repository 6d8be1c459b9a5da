package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerAppendsRecordedEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	recorder := NewRecorder(logger, 8)
	store := NewInMemoryStore()
	worker := NewWorker(recorder, store, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	recorder.Record(Event{
		RegistrationID: "REG20251234",
		FromApproval:   "pending",
		ToApproval:     "approved",
		TotalAmount:    280,
		StudentCount:   3,
		At:             time.Now(),
	})
	recorder.Record(Event{
		RegistrationID: "REG20251234",
		FromApproval:   "approved",
		ToApproval:     "rejected",
		TotalAmount:    280,
		StudentCount:   3,
		At:             time.Now(),
	})

	require.Eventually(t, func() bool {
		events, err := store.ListByRegistration(context.Background(), "REG20251234")
		return err == nil && len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)

	events, err := store.ListByRegistration(context.Background(), "REG20251234")
	require.NoError(t, err)
	require.Equal(t, "approved", events[0].ToApproval)
	require.Equal(t, "rejected", events[1].ToApproval)
	require.NotEmpty(t, events[0].ID)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	recorder := NewRecorder(logger, 1)

	// No worker: second record must not block.
	done := make(chan struct{})
	go func() {
		recorder.Record(Event{RegistrationID: "a"})
		recorder.Record(Event{RegistrationID: "b"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full inbox")
	}
}
