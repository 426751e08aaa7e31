package auth

import (
	"context"
	"sync"
)

// NewInMemoryRefreshStore returns a RefreshStore backed by an in-memory map.
func NewInMemoryRefreshStore() *InMemoryRefreshStore {
	return &InMemoryRefreshStore{tokens: make(map[string]string)}
}

// InMemoryRefreshStore implements RefreshStore for tests and local development.
type InMemoryRefreshStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// SaveRefreshToken replaces the user's active refresh token.
func (s *InMemoryRefreshStore) SaveRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

// RefreshToken returns the user's active refresh token.
func (s *InMemoryRefreshStore) RefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	token, ok := s.tokens[userID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrSessionNotFound
	}
	return token, nil
}

// RotateRefreshToken swaps old for next when old is the user's active token.
func (s *InMemoryRefreshStore) RotateRefreshToken(_ context.Context, userID, old, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.tokens[userID]; !ok || current != old {
		return false, nil
	}
	s.tokens[userID] = next
	return true, nil
}

// ClearRefreshToken forgets the user's active refresh token.
func (s *InMemoryRefreshStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
	return nil
}

// Has reports whether the user has an active refresh token. Useful for tests.
func (s *InMemoryRefreshStore) Has(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[userID]
	return ok
}
