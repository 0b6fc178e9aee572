package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/scoring"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore persists attempts and their scored results.
type AttemptStore struct {
	pool        *pgxpool.Pool
	assessments *AssessmentLoader
	clock       func() time.Time
}

func NewAttemptStore(pool *pgxpool.Pool, assessments *AssessmentLoader) *AttemptStore {
	return &AttemptStore{pool: pool, assessments: assessments, clock: time.Now}
}

func (s *AttemptStore) StartAttempt(ctx context.Context, assessmentID, learnerID string) (domain.Attempt, error) {
	def, err := s.assessments.LoadAssessment(ctx, assessmentID)
	if err != nil {
		return domain.Attempt{}, err
	}
	now := s.clock().UTC()
	if !def.AvailableFrom.IsZero() && now.Before(def.AvailableFrom) {
		return domain.Attempt{}, domain.ErrNotYetAvailable
	}

	attempt := domain.Attempt{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		LearnerID:    learnerID,
		CreatedAt:    now,
	}
	err = s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		// serialize attempt creation per learner so the count check holds
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, assessmentID+"/"+learnerID); err != nil {
			return err
		}
		if def.MaxAttempts > 0 {
			var used int
			if err := tx.QueryRow(ctx,
				`SELECT count(*) FROM attempts WHERE assessment_id=$1 AND learner_id=$2`,
				assessmentID, learnerID).Scan(&used); err != nil {
				return err
			}
			if used >= def.MaxAttempts {
				return domain.ErrAttemptsExhausted
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO attempts (id, assessment_id, learner_id, created_at) VALUES ($1, $2, $3, $4)`,
			attempt.ID, attempt.AssessmentID, attempt.LearnerID, attempt.CreatedAt)
		return err
	})
	if errors.Is(err, domain.ErrAttemptsExhausted) {
		return domain.Attempt{}, err
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	return attempt, nil
}

// SubmitAttempt scores a submission. Resubmitting a scored attempt returns the stored result.
func (s *AttemptStore) SubmitAttempt(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error) {
	var result domain.Result
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var owner string
		var stored []byte
		err := tx.QueryRow(ctx,
			`SELECT assessment_id, result FROM attempts WHERE id=$1 FOR UPDATE`, sub.AttemptID).Scan(&owner, &stored)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		if owner != assessmentID {
			return domain.ErrAttemptNotFound
		}
		if stored != nil {
			return json.Unmarshal(stored, &result)
		}

		assessment, err := s.assessments.LoadStored(ctx, assessmentID)
		if err != nil {
			return err
		}
		result, err = scoring.Score(assessment.Definition, assessment.AnswerKey, sub, s.clock().UTC())
		if err != nil {
			return err
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE attempts SET result=$2::jsonb, submitted_at=$3 WHERE id=$1`,
			sub.AttemptID, string(raw), result.SubmittedAt)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) || errors.Is(err, domain.ErrInvalidSubmission) || errors.Is(err, domain.ErrAssessmentNotFound) {
			return domain.Result{}, err
		}
		return domain.Result{}, fmt.Errorf("submit attempt: %w", err)
	}
	return result, nil
}

func (s *AttemptStore) GetResults(ctx context.Context, assessmentID, attemptID string) (domain.Result, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM attempts WHERE id=$1 AND assessment_id=$2`, attemptID, assessmentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get results: %w", err)
	}
	if raw == nil {
		return domain.Result{}, domain.ErrResultNotFound
	}
	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
