package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dibyendu78/Brain-O-Math/internal/platform/metrics"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
	done chan struct{}
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	if c.done != nil {
		c.done <- struct{}{}
	}
	return c.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestDispatcherDelivers(t *testing.T) {
	sender := &captureSender{done: make(chan struct{}, 1)}
	d := NewDispatcher(sender, testLogger(), metrics.NewForTest(), 8, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	ok := d.Enqueue(Event{
		Kind:            KindSubmissionReceived,
		CoordinatorName: "Asha",
		Email:           "asha@school.edu",
		RegistrationID:  "REG20251234",
		StudentCount:    3,
		TotalAmount:     280,
	})
	require.True(t, ok)

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	require.Equal(t, "asha@school.edu", sender.sent[0].To)
	require.Contains(t, sender.sent[0].Body, "REG20251234")
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	// No worker running: the queue fills and further events are dropped.
	d := NewDispatcher(&captureSender{}, testLogger(), metrics.NewForTest(), 1, time.Second)

	require.True(t, d.Enqueue(Event{Kind: KindWelcome}))
	require.False(t, d.Enqueue(Event{Kind: KindWelcome}))
}

func TestDispatcherSwallowsSenderFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down"), done: make(chan struct{}, 1)}
	d := NewDispatcher(sender, testLogger(), metrics.NewForTest(), 8, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	require.True(t, d.Enqueue(Event{Kind: KindPaymentRejected, Email: "x@y.z"}))

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender was not invoked")
	}
	// Failure is absorbed; nothing to assert beyond the worker staying alive.
	require.True(t, d.Enqueue(Event{Kind: KindPaymentRejected, Email: "x@y.z"}))
}

func TestRenderPerKind(t *testing.T) {
	e := Event{
		Kind:            KindCredentials,
		CoordinatorName: "Ravi",
		Email:           "ravi@school.edu",
		RegistrationID:  "REG20259999",
		Credential:      "3210",
	}
	msg := Render(e)
	require.Equal(t, "ravi@school.edu", msg.To)
	require.Contains(t, msg.Body, "3210")
	require.Contains(t, msg.Body, "REG20259999")

	verified := Render(Event{Kind: KindPaymentVerified, CoordinatorName: "Ravi", RegistrationID: "REG20259999", StudentCount: 2, TotalAmount: 140})
	require.Contains(t, verified.Subject, "verified")
}
