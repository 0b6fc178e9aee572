package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"assessment-session-service/internal/domain"
)

// Kind classifies a failed submission.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
)

// Error is a classified submission failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("submission failed (%s)", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether resending the same payload can succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// FailureKind maps the classification onto the session failure taxonomy.
func (e *Error) FailureKind() domain.FailureKind {
	switch e.Kind {
	case KindNetwork:
		return domain.FailureNetwork
	case KindValidation:
		return domain.FailureValidation
	default:
		return domain.FailureServer
	}
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Classify wraps err in an *Error. Errors that are already classified are returned as is.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrInvalidSubmission),
		errors.Is(err, domain.ErrAssessmentNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		return &Error{Kind: KindValidation, Err: err}
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return &Error{Kind: KindNetwork, Err: err}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		switch {
		case code >= http.StatusInternalServerError, code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
			return &Error{Kind: KindServer, Err: err}
		case code >= http.StatusBadRequest:
			return &Error{Kind: KindValidation, Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	// Anything unrecognized is treated as a server fault: the payload itself was accepted locally.
	return &Error{Kind: KindServer, Err: err}
}
