package domain

import (
	"fmt"
	"time"
)

// AssessmentKind distinguishes quizzes, practice tests and proctored assessments.
// All kinds run through the same session engine; differences live in the definition data.
type AssessmentKind string

const (
	KindQuiz         AssessmentKind = "quiz"
	KindPracticeTest AssessmentKind = "practice_test"
	KindAssessment   AssessmentKind = "assessment"
)

// AnswerKind is the input style a question expects.
type AnswerKind string

const (
	AnswerSingleChoice AnswerKind = "single-choice"
	AnswerFreeText     AnswerKind = "free-text"
	AnswerBoolean      AnswerKind = "boolean"
)

// Question is one item of an assessment. Options are only set for single-choice and boolean questions.
type Question struct {
	ID      string     `json:"id" yaml:"id"`
	Prompt  string     `json:"prompt" yaml:"prompt"`
	Kind    AnswerKind `json:"kind" yaml:"kind"`
	Options []string   `json:"options,omitempty" yaml:"options,omitempty"`
	Points  int        `json:"points" yaml:"points"`
}

// HasOption reports whether label is one of the question's options.
func (q Question) HasOption(label string) bool {
	for _, opt := range q.Options {
		if opt == label {
			return true
		}
	}
	return false
}

// AssessmentDefinition is the immutable question set and rules for an assessment id.
type AssessmentDefinition struct {
	ID               string         `json:"id" yaml:"id"`
	Title            string         `json:"title" yaml:"title"`
	Kind             AssessmentKind `json:"kind" yaml:"kind"`
	Questions        []Question     `json:"questions" yaml:"questions"`
	TimeLimitSeconds int            `json:"timeLimitSeconds" yaml:"timeLimitSeconds"`
	PassThreshold    float64        `json:"passThreshold" yaml:"passThreshold"`                 // percentage, 0-100
	MaxAttempts      int            `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"` // 0 means unlimited
	AvailableFrom    time.Time      `json:"availableFrom,omitempty" yaml:"availableFrom,omitempty"`
}

// TimeLimit returns the time limit as a duration.
func (d AssessmentDefinition) TimeLimit() time.Duration {
	return time.Duration(d.TimeLimitSeconds) * time.Second
}

// TotalPoints sums the point values of all questions.
func (d AssessmentDefinition) TotalPoints() int {
	total := 0
	for _, q := range d.Questions {
		total += q.Points
	}
	return total
}

// QuestionIndex returns the position of questionID, or -1.
func (d AssessmentDefinition) QuestionIndex(questionID string) int {
	for i := range d.Questions {
		if d.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// QuestionIDs lists question ids in presentation order.
func (d AssessmentDefinition) QuestionIDs() []string {
	ids := make([]string, len(d.Questions))
	for i, q := range d.Questions {
		ids[i] = q.ID
	}
	return ids
}

// Validate checks the content contract the engine relies on.
func (d AssessmentDefinition) Validate() error {
	if len(d.Questions) == 0 {
		return ErrNoQuestions
	}
	if d.TimeLimitSeconds <= 0 {
		return ErrInvalidTimeLimit
	}
	seen := make(map[string]struct{}, len(d.Questions))
	for _, q := range d.Questions {
		if _, ok := seen[q.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	if d.TotalPoints() <= 0 {
		return ErrInvalidPoints
	}
	return nil
}

// AnswerKey maps question ids to accepted answers. It stays on the persistence side.
type AnswerKey map[string][]string

// StoredAssessment is a definition together with its answer key, as persisted.
type StoredAssessment struct {
	Definition AssessmentDefinition `json:"definition" yaml:"definition"`
	AnswerKey  AnswerKey            `json:"answerKey" yaml:"answerKey"`
}

// Attempt is one learner's run at an assessment.
type Attempt struct {
	ID           string    `json:"attemptId"`
	AssessmentID string    `json:"assessmentId"`
	LearnerID    string    `json:"learnerId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Answer holds either a selected option or free text, depending on the question kind.
type Answer struct {
	SelectedOption string `json:"selectedOption,omitempty"`
	FreeText       string `json:"freeText,omitempty"`
}

// AnswerRecord is the ledger entry for one question.
type AnswerRecord struct {
	QuestionID     string `json:"questionId" validate:"required"`
	SelectedOption string `json:"selectedOption,omitempty" validate:"excluded_with=FreeText"`
	FreeText       string `json:"freeText,omitempty"`
	SecondsSpent   int    `json:"secondsSpent" validate:"gte=0"`
}

// Answered reports whether the record carries an answer (as opposed to time only).
func (r AnswerRecord) Answered() bool {
	return r.SelectedOption != "" || r.FreeText != ""
}

// Submission is the outbound payload for a finished attempt.
type Submission struct {
	AttemptID         string         `json:"attemptId" validate:"required"`
	Answers           []AnswerRecord `json:"answers" validate:"dive"`
	TotalSecondsSpent int            `json:"totalSecondsSpent" validate:"gte=0"`
	Expired           bool           `json:"expired"`
}

// QuestionResult is the per-question correctness breakdown.
type QuestionResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	Points     int    `json:"points"`
}

// Result is produced by persistence once a submission has been scored.
type Result struct {
	AttemptID    string           `json:"attemptId"`
	AssessmentID string           `json:"assessmentId"`
	Score        int              `json:"score"`
	MaxScore     int              `json:"maxScore"`
	Percentage   float64          `json:"percentage"`
	Passed       bool             `json:"passed"`
	Expired      bool             `json:"expired"`
	Breakdown    []QuestionResult `json:"perQuestionBreakdown"`
	SubmittedAt  time.Time        `json:"submittedAt"`
}

// Reward is the one-way notification handed to the rewards sink.
type Reward struct {
	LearnerID    string    `json:"learnerId"`
	AssessmentID string    `json:"assessmentId"`
	AttemptID    string    `json:"attemptId"`
	Percentage   float64   `json:"percentage"`
	Passed       bool      `json:"passed"`
	CompletedAt  time.Time `json:"completedAt"`
}

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	StateNotStarted  SessionState = "not_started"
	StateInProgress  SessionState = "in_progress"
	StateTimeExpired SessionState = "time_expired"
	StateSubmitting  SessionState = "submitting"
	StateCompleted   SessionState = "completed"
	StateError       SessionState = "error"
)

// FailureKind classifies why a session is in the error state.
type FailureKind string

const (
	FailureSetup      FailureKind = "setup"
	FailureNetwork    FailureKind = "network"
	FailureValidation FailureKind = "validation"
	FailureServer     FailureKind = "server"
)

// Failure describes the error state of a session.
type Failure struct {
	Kind      FailureKind `json:"kind"`
	Reason    string      `json:"reason"`
	Retryable bool        `json:"retryable"`
}

// SessionView is a snapshot-friendly view of a session for presentation layers.
type SessionView struct {
	AttemptID        string       `json:"attemptId"`
	AssessmentID     string       `json:"assessmentId"`
	State            SessionState `json:"state"`
	QuestionIndex    int          `json:"questionIndex"`
	QuestionCount    int          `json:"questionCount"`
	Answered         int          `json:"answered"`
	RemainingSeconds int          `json:"remainingSeconds"`
	Expired          bool         `json:"expired"`
	Failure          *Failure     `json:"failure,omitempty"`
	Result           *Result      `json:"result,omitempty"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}
