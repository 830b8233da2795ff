// Package devotp parks issued OTP codes in memory when dev OTP mode is enabled, so they can be read
// back via GET /dev/otp instead of arriving by SMS.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds the latest plain code per phone number. Never wired in production.
type Store interface {
	// Put records code as the latest code for identifier until expiresAt.
	Put(ctx context.Context, identifier, code string, expiresAt time.Time)
	// Get returns the latest unexpired code for identifier.
	Get(ctx context.Context, identifier string) (code string, expiresAt time.Time, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put replaces any earlier code for identifier.
func (s *MemoryStore) Put(ctx context.Context, identifier, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[identifier] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for identifier if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, identifier string) (string, time.Time, bool) {
	s.mu.RLock()
	e, ok := s.m[identifier]
	s.mu.RUnlock()
	if !ok {
		return "", time.Time{}, false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, identifier)
		s.mu.Unlock()
		return "", time.Time{}, false
	}
	return e.code, e.expiresAt, true
}
