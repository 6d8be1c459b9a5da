package store

import (
	"context"
	"sync"

	"github.com/Dibyendu78/Brain-O-Math/internal/coordinator/models"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

// InMemory keeps coordinator accounts in maps guarded by one RWMutex.
// Development and test default; favors clarity over performance.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.Coordinator
	byEmail map[string]string // email -> id
	byRegID map[string]string // registration id -> id
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*models.Coordinator),
		byEmail: make(map[string]string),
		byRegID: make(map[string]string),
	}
}

func (s *InMemory) Create(_ context.Context, c *models.Coordinator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[c.Email]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byRegID[c.RegistrationID]; taken {
		return sentinel.ErrConflict
	}
	clone := *c
	s.byID[c.ID] = &clone
	s.byEmail[c.Email] = c.ID
	s.byRegID[c.RegistrationID] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *InMemory) FindByIDs(_ context.Context, ids []string) (map[string]*models.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Coordinator, len(ids))
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			clone := *c
			out[id] = &clone
		}
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
