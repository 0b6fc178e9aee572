package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"assessment-session-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AssessmentLoader fetches assessment definitions from a backing store (e.g., Postgres).
type AssessmentLoader interface {
	LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error)
}

// AssessmentRepository caches definitions with TTL to avoid repeated DB hits.
type AssessmentRepository struct {
	loader AssessmentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDefinition
}

type cachedDefinition struct {
	def       domain.AssessmentDefinition
	expiresAt time.Time
}

func NewAssessmentRepository(loader AssessmentLoader, ttl time.Duration) *AssessmentRepository {
	return &AssessmentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDefinition),
	}
}

func (r *AssessmentRepository) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	if def, ok := r.cached(assessmentID); ok {
		return def, nil
	}

	result, err, _ := r.sf.Do(assessmentID, func() (interface{}, error) {
		if def, ok := r.cached(assessmentID); ok {
			return def, nil
		}

		def, err := r.loader.LoadAssessment(ctx, assessmentID)
		if err != nil {
			return domain.AssessmentDefinition{}, err
		}

		r.mu.Lock()
		r.cache[assessmentID] = cachedDefinition{
			def:       def,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return domain.AssessmentDefinition{}, err
	}
	return result.(domain.AssessmentDefinition), nil
}

// Invalidate drops a cached definition, e.g. after re-seeding.
func (r *AssessmentRepository) Invalidate(assessmentID string) {
	r.mu.Lock()
	delete(r.cache, assessmentID)
	r.mu.Unlock()
}

func (r *AssessmentRepository) cached(assessmentID string) (domain.AssessmentDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[assessmentID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.AssessmentDefinition{}, false
	}
	return entry.def, true
}

func (r *AssessmentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	jitter := r.rnd.Int63n(jitterMax + 1)
	r.rndMu.Unlock()
	return r.ttl + time.Duration(jitter)
}
