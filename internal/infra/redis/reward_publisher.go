package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"assessment-session-service/internal/logger"
	"assessment-session-service/internal/rewards"
	"github.com/redis/go-redis/v9"
)

// RewardPublisher fans awards out over a Redis pub/sub channel.
type RewardPublisher struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

func NewRewardPublisher(client *redis.Client, channel string, log *logger.Logger) *RewardPublisher {
	if channel == "" {
		channel = "rewards"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RewardPublisher{client: client, channel: channel, log: log.With("component", "reward_publisher")}
}

func (p *RewardPublisher) Publish(ctx context.Context, award rewards.Award) error {
	raw, err := json.Marshal(award)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, raw).Err()
}

// Forward subscribes to the channel and calls onAward for every award until ctx is done.
func (p *RewardPublisher) Forward(ctx context.Context, onAward func(rewards.Award)) error {
	if onAward == nil {
		return fmt.Errorf("onAward callback required")
	}
	sub := p.client.Subscribe(ctx, p.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var award rewards.Award
				if err := json.Unmarshal([]byte(m.Payload), &award); err != nil {
					p.log.Warn("bad award payload", "error", err)
					continue
				}
				onAward(award)
			}
		}
	}()
	return nil
}
