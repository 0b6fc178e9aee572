package redis

import (
	"context"
	"sync"
	"time"

	"assessment-session-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions own a running countdown and live subscribers, so the session objects stay in a
//     local map; only this instance can serve them.
//   - Redis marks session liveness (assessment:session:{attemptID} -> instance), so other
//     instances can tell a live attempt from an abandoned one.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, instance string) *SessionStore {
	if instance == "" {
		instance = "1"
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		instance: instance,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(attemptID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[attemptID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(attemptID), s.instance, s.ttl).Err()
}

func (s *SessionStore) Get(attemptID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[attemptID]
	return session, ok
}

func (s *SessionStore) Delete(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, attemptID)
	_ = s.client.Del(context.Background(), s.key(attemptID)).Err()
}

// Owner returns the instance holding a live attempt, if any.
func (s *SessionStore) Owner(ctx context.Context, attemptID string) (string, bool, error) {
	owner, err := s.client.Get(ctx, s.key(attemptID)).Result()
	if IsMiss(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

func (s *SessionStore) key(attemptID string) string {
	return "assessment:session:" + attemptID
}
