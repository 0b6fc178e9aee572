package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAssessmentRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{AssessmentLoader: memory.NewCatalog(sampleStored())}
	repo := NewAssessmentRepository(client, loader, time.Minute)

	def, err := repo.LoadAssessment(context.Background(), "bio-101")
	if err != nil {
		t.Fatalf("load assessment: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("assessment:bio-101:definition") {
		t.Fatalf("expected definition cached in redis")
	}
	if ttl := mr.TTL("assessment:bio-101:definition"); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("expected ttl with jitter, got %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.LoadAssessment(context.Background(), "bio-101")
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if cached.Title != def.Title || len(cached.Questions) != 2 || cached.Questions[0].Options[1] != "Mitochondria" {
		t.Fatalf("unexpected cached definition %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), "bio-101"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("assessment:bio-101:definition") {
		t.Fatalf("expected cache entry removed")
	}
}

func TestAssessmentRepositoryDoesNotCacheMisses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewAssessmentRepository(newClient(mr), memory.NewCatalog(), time.Minute)
	if _, err := repo.LoadAssessment(context.Background(), "missing"); !errors.Is(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("expected ErrAssessmentNotFound, got %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", mr.Keys())
	}
}

type countingLoader struct {
	AssessmentLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.AssessmentLoader.LoadAssessment(ctx, assessmentID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleStored() domain.StoredAssessment {
	return domain.StoredAssessment{
		Definition: domain.AssessmentDefinition{
			ID:               "bio-101",
			Title:            "Cells",
			Kind:             domain.KindAssessment,
			TimeLimitSeconds: 600,
			PassThreshold:    60,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Powerhouse of the cell?", Kind: domain.AnswerSingleChoice, Options: []string{"Nucleus", "Mitochondria"}, Points: 2},
				{ID: "q2", Prompt: "Name the green pigment.", Kind: domain.AnswerFreeText, Points: 1},
			},
		},
		AnswerKey: domain.AnswerKey{"q1": {"Mitochondria"}, "q2": {"Chlorophyll"}},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
