// Package scoring grades submissions on the persistence side, where the answer key lives.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"assessment-session-service/internal/domain"
)

// Score grades answers against key. Every submitted question id must belong to the definition.
func Score(def domain.AssessmentDefinition, key domain.AnswerKey, sub domain.Submission, submittedAt time.Time) (domain.Result, error) {
	byQuestion := make(map[string]domain.AnswerRecord, len(sub.Answers))
	for _, rec := range sub.Answers {
		if def.QuestionIndex(rec.QuestionID) < 0 {
			return domain.Result{}, fmt.Errorf("%w: unknown question %q", domain.ErrInvalidSubmission, rec.QuestionID)
		}
		byQuestion[rec.QuestionID] = rec
	}

	result := domain.Result{
		AttemptID:    sub.AttemptID,
		AssessmentID: def.ID,
		MaxScore:     def.TotalPoints(),
		Expired:      sub.Expired,
		Breakdown:    make([]domain.QuestionResult, 0, len(def.Questions)),
		SubmittedAt:  submittedAt,
	}
	for _, q := range def.Questions {
		qr := domain.QuestionResult{QuestionID: q.ID, Points: q.Points}
		if rec, ok := byQuestion[q.ID]; ok && IsCorrect(q, key[q.ID], rec) {
			qr.Correct = true
			qr.Awarded = q.Points
			result.Score += q.Points
		}
		result.Breakdown = append(result.Breakdown, qr)
	}

	if result.MaxScore > 0 {
		result.Percentage = math.Round(float64(result.Score)/float64(result.MaxScore)*10000) / 100
	}
	result.Passed = result.Percentage >= def.PassThreshold
	return result, nil
}

// IsCorrect compares one answer with the accepted answers for its question.
// Free text is compared case-insensitively with surrounding whitespace ignored.
func IsCorrect(q domain.Question, accepted []string, rec domain.AnswerRecord) bool {
	switch q.Kind {
	case domain.AnswerFreeText:
		given := normalize(rec.FreeText)
		if given == "" {
			return false
		}
		for _, a := range accepted {
			if normalize(a) == given {
				return true
			}
		}
	default:
		if rec.SelectedOption == "" {
			return false
		}
		for _, a := range accepted {
			if a == rec.SelectedOption {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
