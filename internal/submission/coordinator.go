package submission

import (
	"context"
	"fmt"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/logger"
	"github.com/go-playground/validator/v10"
)

// Gateway is the persistence call the coordinator drives.
type Gateway interface {
	SubmitAttempt(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error)
}

// Coordinator turns one submit request into exactly one outbound call and classifies the outcome.
// It does not remember earlier calls; the session's submission guard decides whether to call it.
type Coordinator struct {
	gateway  Gateway
	validate *validator.Validate
	timeout  time.Duration
	log      *logger.Logger
}

// NewCoordinator builds a coordinator. A zero timeout leaves the deadline to the caller's context.
func NewCoordinator(gateway Gateway, timeout time.Duration, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		gateway:  gateway,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  timeout,
		log:      log.With("component", "submission"),
	}
}

// Submit validates and sends the submission. Failures are returned as *Error.
func (c *Coordinator) Submit(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error) {
	if assessmentID == "" {
		return domain.Result{}, &Error{Kind: KindValidation, Err: fmt.Errorf("%w: missing assessment id", domain.ErrInvalidSubmission)}
	}
	if err := c.validate.Struct(sub); err != nil {
		return domain.Result{}, &Error{Kind: KindValidation, Err: fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err)}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	result, err := c.gateway.SubmitAttempt(ctx, assessmentID, sub)
	if err != nil {
		classified := Classify(err)
		c.log.Warn("submission failed",
			"assessment_id", assessmentID,
			"attempt_id", sub.AttemptID,
			"kind", string(classified.Kind),
			"error", err,
			"elapsed", time.Since(started),
		)
		return domain.Result{}, classified
	}

	c.log.Info("submission accepted",
		"assessment_id", assessmentID,
		"attempt_id", sub.AttemptID,
		"expired", sub.Expired,
		"answers", len(sub.Answers),
		"elapsed", time.Since(started),
	)
	return result, nil
}
