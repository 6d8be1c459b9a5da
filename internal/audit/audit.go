// Package audit keeps an append-only record of admin review transitions.
// The revenue ledger is a mutable projection that forgets a verify-to-reject
// flip; this log is where that history survives. Records are persisted
// locally and published to Kafka best-effort.
package audit

import (
	"context"
	"sync"
	"time"
)

// Event describes one admin transition on a registration.
type Event struct {
	ID             string    `json:"id"`
	RegistrationID string    `json:"registration_id"`
	FromPayment    string    `json:"from_payment,omitempty"`
	ToPayment      string    `json:"to_payment,omitempty"`
	FromApproval   string    `json:"from_approval,omitempty"`
	ToApproval     string    `json:"to_approval,omitempty"`
	TotalAmount    int       `json:"total_amount"`
	StudentCount   int       `json:"student_count"`
	Actor          string    `json:"actor"`
	At             time.Time `json:"at"`
}

// Store persists transition events. Append-only: there is no update or
// delete.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRegistration(ctx context.Context, registrationID string) ([]Event, error)
}

// InMemoryStore keeps events in insertion order. Test and dev default.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByRegistration(_ context.Context, registrationID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.RegistrationID == registrationID {
			out = append(out, e)
		}
	}
	return out, nil
}
