package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StreakStore keeps pass streaks as counters: INCR rewards:streak:{learnerID}
type StreakStore struct {
	client *redis.Client
}

func NewStreakStore(client *redis.Client) *StreakStore {
	return &StreakStore{client: client}
}

func (s *StreakStore) Extend(ctx context.Context, learnerID string) (int, error) {
	n, err := s.client.Incr(ctx, s.key(learnerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr streak: %w", err)
	}
	return int(n), nil
}

func (s *StreakStore) Reset(ctx context.Context, learnerID string) error {
	if err := s.client.Del(ctx, s.key(learnerID)).Err(); err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}

func (s *StreakStore) key(learnerID string) string {
	return "rewards:streak:" + learnerID
}
