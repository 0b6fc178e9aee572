package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"assessment-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AssessmentLoader fetches assessment definitions from a backing store (e.g., Postgres).
type AssessmentLoader interface {
	LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error)
}

// AssessmentRepository caches definitions in Redis and falls back to a loader on cache miss.
// Definitions are stored as JSON: SET assessment:{id}:definition {json} EX ttl
// Answer keys are never cached here; they stay with the attempt store.
type AssessmentRepository struct {
	client *redis.Client
	loader AssessmentLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAssessmentRepository(client *redis.Client, loader AssessmentLoader, ttl time.Duration) *AssessmentRepository {
	return &AssessmentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AssessmentRepository) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	key := r.definitionKey(assessmentID)
	if def, ok := r.cached(ctx, key); ok {
		return def, nil
	}

	result, err, _ := r.sf.Do(assessmentID, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if def, ok := r.cached(ctx, key); ok {
			return def, nil
		}

		def, err := r.loader.LoadAssessment(ctx, assessmentID)
		if err != nil {
			return domain.AssessmentDefinition{}, err
		}

		raw, err := json.Marshal(def)
		if err == nil {
			// best-effort fill; a failed write only costs another load
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return def, nil
	})
	if err != nil {
		return domain.AssessmentDefinition{}, err
	}
	return result.(domain.AssessmentDefinition), nil
}

// Invalidate removes the cached definition.
func (r *AssessmentRepository) Invalidate(ctx context.Context, assessmentID string) error {
	return r.client.Del(ctx, r.definitionKey(assessmentID)).Err()
}

func (r *AssessmentRepository) cached(ctx context.Context, key string) (domain.AssessmentDefinition, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.AssessmentDefinition{}, false
	}
	var def domain.AssessmentDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.AssessmentDefinition{}, false
	}
	return def, true
}

// IsMiss reports whether err is a plain cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (r *AssessmentRepository) definitionKey(assessmentID string) string {
	return "assessment:" + assessmentID + ":definition"
}

func (r *AssessmentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
