package scoring

import (
	"errors"
	"testing"
	"time"

	"assessment-session-service/internal/domain"
)

func sampleDefinition() domain.AssessmentDefinition {
	return domain.AssessmentDefinition{
		ID:               "bio-101",
		TimeLimitSeconds: 600,
		PassThreshold:    60,
		Questions: []domain.Question{
			{ID: "q1", Kind: domain.AnswerSingleChoice, Options: []string{"A", "B", "C"}, Points: 2},
			{ID: "q2", Kind: domain.AnswerBoolean, Options: []string{"True", "False"}, Points: 1},
			{ID: "q3", Kind: domain.AnswerFreeText, Points: 2},
		},
	}
}

func sampleKey() domain.AnswerKey {
	return domain.AnswerKey{
		"q1": {"B"},
		"q2": {"True"},
		"q3": {"Photosynthesis"},
	}
}

func TestScoreComputesBreakdownAndPass(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	res, err := Score(sampleDefinition(), sampleKey(), domain.Submission{
		AttemptID: "att-1",
		Answers: []domain.AnswerRecord{
			{QuestionID: "q1", SelectedOption: "B", SecondsSpent: 10},
			{QuestionID: "q2", SelectedOption: "False", SecondsSpent: 8},
			{QuestionID: "q3", FreeText: "  photosynthesis ", SecondsSpent: 20},
		},
	}, now)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Score != 4 || res.MaxScore != 5 {
		t.Fatalf("expected 4/5, got %d/%d", res.Score, res.MaxScore)
	}
	if res.Percentage != 80 || !res.Passed {
		t.Fatalf("expected 80%% passed, got %v passed=%v", res.Percentage, res.Passed)
	}
	if len(res.Breakdown) != 3 || res.Breakdown[1].Correct {
		t.Fatalf("unexpected breakdown %+v", res.Breakdown)
	}
	if !res.SubmittedAt.Equal(now) || res.AttemptID != "att-1" || res.AssessmentID != "bio-101" {
		t.Fatalf("unexpected result metadata %+v", res)
	}
}

func TestScoreUnansweredAndTimeOnlyRecordsEarnNothing(t *testing.T) {
	res, err := Score(sampleDefinition(), sampleKey(), domain.Submission{
		AttemptID: "att-2",
		Answers:   []domain.AnswerRecord{{QuestionID: "q3", SecondsSpent: 40}},
		Expired:   true,
	}, time.Now())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Score != 0 || res.Passed || !res.Expired {
		t.Fatalf("expected failing expired result, got %+v", res)
	}
}

func TestScoreRejectsUnknownQuestion(t *testing.T) {
	_, err := Score(sampleDefinition(), sampleKey(), domain.Submission{
		AttemptID: "att-3",
		Answers:   []domain.AnswerRecord{{QuestionID: "q9", SelectedOption: "A"}},
	}, time.Now())
	if !errors.Is(err, domain.ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}
}
