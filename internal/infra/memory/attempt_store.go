package memory

import (
	"context"
	"sync"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/scoring"
	"github.com/google/uuid"
)

// StoredLoader returns assessments together with their answer keys.
type StoredLoader interface {
	LoadStored(ctx context.Context, assessmentID string) (domain.StoredAssessment, error)
}

// AttemptStore is the in-memory persistence side of an attempt: it issues attempt ids,
// enforces attempt policy and scores submissions.
type AttemptStore struct {
	assessments StoredLoader
	clock       func() time.Time

	mu        sync.Mutex
	attempts  map[string]*attemptRecord
	byLearner map[string]int
}

type attemptRecord struct {
	attempt domain.Attempt
	result  *domain.Result
}

func NewAttemptStore(assessments StoredLoader) *AttemptStore {
	return &AttemptStore{
		assessments: assessments,
		clock:       time.Now,
		attempts:    make(map[string]*attemptRecord),
		byLearner:   make(map[string]int),
	}
}

// NewAttemptStoreWithClock is test-only for deterministic timestamps.
func NewAttemptStoreWithClock(assessments StoredLoader, now func() time.Time) *AttemptStore {
	s := NewAttemptStore(assessments)
	s.clock = now
	return s
}

func (s *AttemptStore) StartAttempt(ctx context.Context, assessmentID, learnerID string) (domain.Attempt, error) {
	stored, err := s.assessments.LoadStored(ctx, assessmentID)
	if err != nil {
		return domain.Attempt{}, err
	}
	def := stored.Definition
	now := s.clock()
	if !def.AvailableFrom.IsZero() && now.Before(def.AvailableFrom) {
		return domain.Attempt{}, domain.ErrNotYetAvailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := assessmentID + "/" + learnerID
	if def.MaxAttempts > 0 && s.byLearner[key] >= def.MaxAttempts {
		return domain.Attempt{}, domain.ErrAttemptsExhausted
	}
	attempt := domain.Attempt{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		LearnerID:    learnerID,
		CreatedAt:    now,
	}
	s.attempts[attempt.ID] = &attemptRecord{attempt: attempt}
	s.byLearner[key]++
	return attempt, nil
}

// SubmitAttempt scores a submission. Resubmitting a scored attempt returns the stored result.
func (s *AttemptStore) SubmitAttempt(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error) {
	s.mu.Lock()
	rec, ok := s.attempts[sub.AttemptID]
	if ok && rec.result != nil {
		res := *rec.result
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()
	if !ok || rec.attempt.AssessmentID != assessmentID {
		return domain.Result{}, domain.ErrAttemptNotFound
	}

	stored, err := s.assessments.LoadStored(ctx, assessmentID)
	if err != nil {
		return domain.Result{}, err
	}
	result, err := scoring.Score(stored.Definition, stored.AnswerKey, sub, s.clock())
	if err != nil {
		return domain.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.result != nil {
		return *rec.result, nil
	}
	rec.result = &result
	return result, nil
}

func (s *AttemptStore) GetResults(_ context.Context, assessmentID, attemptID string) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.attempts[attemptID]
	if !ok || rec.attempt.AssessmentID != assessmentID {
		return domain.Result{}, domain.ErrAttemptNotFound
	}
	if rec.result == nil {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return *rec.result, nil
}
