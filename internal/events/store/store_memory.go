package store

import (
	"context"
	"slices"
	"sync"

	"consents/internal/events/models"
	id "consents/pkg/domain"
	"consents/pkg/platform/sentinel"
)

// Error Contract:
// - Save returns sentinel.ErrConflict for a duplicate event ID
// - Delete and DeleteByUser are idempotent and return nil when nothing matches

// InMemoryStore keeps events in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []*models.Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == event.ID {
			return sentinel.ErrConflict
		}
	}
	copyEvent := *event
	s.events = append(s.events, &copyEvent)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		copyEvent := *e
		out = append(out, &copyEvent)
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = slices.DeleteFunc(s.events, func(e *models.Event) bool {
		return e.ID == eventID
	})
	return nil
}

func (s *InMemoryStore) DeleteByUser(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.events)
	s.events = slices.DeleteFunc(s.events, func(e *models.Event) bool {
		return e.UserID == userID
	})
	return int64(before - len(s.events)), nil
}
