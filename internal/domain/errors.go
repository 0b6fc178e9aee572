package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAssessmentNotFound indicates the assessment content could not be loaded.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrAttemptsExhausted is returned when the learner has used all allowed attempts.
	ErrAttemptsExhausted = errors.New("attempts exhausted")
	// ErrNotYetAvailable is returned when an assessment opens in the future.
	ErrNotYetAvailable = errors.New("assessment not yet available")

	// ErrDataIntegrity marks content that breaks the provider contract.
	ErrDataIntegrity = errors.New("assessment data integrity")
	// ErrNoQuestions indicates an assessment without questions.
	ErrNoQuestions = fmt.Errorf("%w: no questions", ErrDataIntegrity)
	// ErrInvalidPoints indicates a non-positive point total.
	ErrInvalidPoints = fmt.Errorf("%w: point total must be positive", ErrDataIntegrity)
	// ErrInvalidTimeLimit indicates a non-positive time limit.
	ErrInvalidTimeLimit = fmt.Errorf("%w: time limit must be positive", ErrDataIntegrity)
	// ErrDuplicateQuestion indicates two questions share an id.
	ErrDuplicateQuestion = fmt.Errorf("%w: duplicate question id", ErrDataIntegrity)

	// ErrAttemptNotFound is returned when persistence does not know the attempt id.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrInvalidSubmission indicates a malformed submission payload.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrResultNotFound is returned when results are requested for an unscored attempt.
	ErrResultNotFound = errors.New("result not found")

	// ErrSessionNotFound is returned when no live session exists for an attempt id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotActive is returned when an operation is not allowed in the current state.
	ErrSessionNotActive = errors.New("session not accepting this operation")
	// ErrSessionClosed is returned after the host tore the session down.
	ErrSessionClosed = errors.New("session closed")
	// ErrQuestionNotFound indicates an answer for an unknown question id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidAnswer indicates an answer that does not fit the question kind.
	ErrInvalidAnswer = errors.New("invalid answer for question")
)

// IsSetupError reports whether err prevents a session from starting at all.
func IsSetupError(err error) bool {
	return errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrAttemptsExhausted) ||
		errors.Is(err, ErrNotYetAvailable) ||
		errors.Is(err, ErrDataIntegrity)
}
