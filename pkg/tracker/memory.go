package tracker

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu   sync.Mutex
	days []string
}

// NewMemoryStore creates a store preloaded with days.
func NewMemoryStore(days ...string) *MemoryStore {
	return &MemoryStore{days: append([]string(nil), days...)}
}

func (s *MemoryStore) Load(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.days))
	for _, d := range s.days {
		out[d] = struct{}{}
	}
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days = append(s.days, day)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Days returns the recorded days in append order.
func (s *MemoryStore) Days() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.days...)
}
