package memory

import (
	"context"
	"sync"
)

// StreakStore keeps pass streaks in memory.
type StreakStore struct {
	mu      sync.Mutex
	streaks map[string]int
}

func NewStreakStore() *StreakStore {
	return &StreakStore{streaks: make(map[string]int)}
}

func (s *StreakStore) Extend(_ context.Context, learnerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[learnerID]++
	return s.streaks[learnerID], nil
}

func (s *StreakStore) Reset(_ context.Context, learnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streaks, learnerID)
	return nil
}
