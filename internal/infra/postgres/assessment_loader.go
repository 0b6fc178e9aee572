package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"assessment-session-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AssessmentLoader loads assessment JSONB from Postgres.
type AssessmentLoader struct {
	pool *pgxpool.Pool
}

func NewAssessmentLoader(pool *pgxpool.Pool) *AssessmentLoader {
	return &AssessmentLoader{pool: pool}
}

// LoadAssessment returns the definition only; the answer key is not read.
func (l *AssessmentLoader) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM assessments WHERE id=$1`, assessmentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AssessmentDefinition{}, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return domain.AssessmentDefinition{}, fmt.Errorf("load assessment: %w", err)
	}
	var def domain.AssessmentDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.AssessmentDefinition{}, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return def, nil
}

func (l *AssessmentLoader) LoadStored(ctx context.Context, assessmentID string) (domain.StoredAssessment, error) {
	var rawDef, rawKey []byte
	err := l.pool.QueryRow(ctx, `SELECT data, answer_key FROM assessments WHERE id=$1`, assessmentID).Scan(&rawDef, &rawKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StoredAssessment{}, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return domain.StoredAssessment{}, fmt.Errorf("load assessment: %w", err)
	}
	var stored domain.StoredAssessment
	if err := json.Unmarshal(rawDef, &stored.Definition); err != nil {
		return domain.StoredAssessment{}, fmt.Errorf("unmarshal assessment: %w", err)
	}
	if err := json.Unmarshal(rawKey, &stored.AnswerKey); err != nil {
		return domain.StoredAssessment{}, fmt.Errorf("unmarshal answer key: %w", err)
	}
	return stored, nil
}

// SaveAssessment upserts a definition and its answer key.
func (l *AssessmentLoader) SaveAssessment(ctx context.Context, stored domain.StoredAssessment) error {
	if err := stored.Definition.Validate(); err != nil {
		return err
	}
	def, err := json.Marshal(stored.Definition)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	key, err := json.Marshal(stored.AnswerKey)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO assessments (id, data, answer_key, updated_at)
		VALUES ($1, $2::jsonb, $3::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, answer_key=EXCLUDED.answer_key, updated_at=now()`,
		stored.Definition.ID, string(def), string(key))
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}
