package store

import (
	"context"
	"strings"
	"sync"

	"consents/internal/users/models"
	id "consents/pkg/domain"
	"consents/pkg/platform/sentinel"
)

// Error Contract:
// - FindByID and FindByEmail return sentinel.ErrNotFound when no user matches
// - Save and Update return sentinel.ErrConflict when the email is taken (case-insensitive)
// - Update returns sentinel.ErrNotFound for an unknown user
// - Delete is idempotent and returns nil for unknown users

// InMemoryStore keeps users in memory, in creation order.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
	order []id.UserID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrConflict
	}
	if s.emailTakenLocked(user.Email, user.ID) {
		return sentinel.ErrConflict
	}
	copyUser := *user
	s.users[user.ID] = &copyUser
	s.order = append(s.order, user.ID)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; !exists {
		return sentinel.ErrNotFound
	}
	if s.emailTakenLocked(user.Email, user.ID) {
		return sentinel.ErrConflict
	}
	copyUser := *user
	s.users[user.ID] = &copyUser
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyUser := *user
	return &copyUser, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, userID := range s.order {
		if user := s.users[userID]; strings.EqualFold(user.Email, email) {
			copyUser := *user
			return &copyUser, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.order))
	for _, userID := range s.order {
		copyUser := *s.users[userID]
		out = append(out, &copyUser)
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil
	}
	delete(s.users, userID)
	for i, existing := range s.order {
		if existing == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) emailTakenLocked(email string, owner id.UserID) bool {
	for userID, user := range s.users {
		if userID != owner && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}
