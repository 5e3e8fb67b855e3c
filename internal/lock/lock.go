// Package lock provides the exclusive access lock that keeps background
// synchronization away from an attempt while a session is editing it.
package lock

import (
	"context"
	"sync"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
)

// Key identifies a lockable instance: the component name plus the instance
// id within that component.
type Key struct {
	Component  string
	InstanceID string
}

func (k Key) String() string {
	return k.Component + ":" + k.InstanceID
}

// Service is the lock registry. Implementations must fail Acquire with a
// ConcurrencyError when another holder owns the key, and treat Release by a
// non-holder as a no-op.
type Service interface {
	Acquire(ctx context.Context, key Key, holder string) error
	Release(ctx context.Context, key Key, holder string) error
	IsHeld(ctx context.Context, key Key) (bool, error)
}

// MemoryService is an in-process lock arena. Each instance is isolated, so
// tests can create one per case.
type MemoryService struct {
	mu      sync.Mutex
	holders map[string]string
}

func NewMemoryService() *MemoryService {
	return &MemoryService{holders: make(map[string]string)}
}

func (s *MemoryService) Acquire(ctx context.Context, key Key, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.holders[key.String()]; ok && current != holder {
		return apperrors.NewConcurrencyError(key.Component, key.InstanceID, current)
	}
	s.holders[key.String()] = holder
	return nil
}

func (s *MemoryService) Release(ctx context.Context, key Key, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.holders[key.String()]; ok && current == holder {
		delete(s.holders, key.String())
	}
	return nil
}

func (s *MemoryService) IsHeld(ctx context.Context, key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.holders[key.String()]
	return ok, nil
}

var _ Service = (*MemoryService)(nil)
