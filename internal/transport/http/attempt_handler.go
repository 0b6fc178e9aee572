package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/logger"
	"github.com/go-playground/validator/v10"
)

// Error codes shared with infra/attemptapi.
const (
	CodeNotFound          = "not_found"
	CodeAttemptsExhausted = "attempts_exhausted"
	CodeNotYetAvailable   = "not_yet_available"
	CodeAttemptNotFound   = "attempt_not_found"
	CodeInvalidSubmission = "invalid_submission"
	CodeResultNotFound    = "result_not_found"
	CodeDataIntegrity     = "data_integrity"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal"
)

// DefinitionSource serves assessment definitions without answer keys.
type DefinitionSource interface {
	LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error)
}

// AttemptBackend is the persistence side the API exposes.
type AttemptBackend interface {
	StartAttempt(ctx context.Context, assessmentID, learnerID string) (domain.Attempt, error)
	SubmitAttempt(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error)
	GetResults(ctx context.Context, assessmentID, attemptID string) (domain.Result, error)
}

// AttemptHandler serves the persistence API used by remote session engines.
type AttemptHandler struct {
	definitions DefinitionSource
	attempts    AttemptBackend
	validate    *validator.Validate
	log         *logger.Logger
}

func NewAttemptHandler(definitions DefinitionSource, attempts AttemptBackend, log *logger.Logger) *AttemptHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AttemptHandler{
		definitions: definitions,
		attempts:    attempts,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         log.With("component", "attempt_api"),
	}
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// StartRequest is the body of POST /v1/assessments/{id}/attempts.
type StartRequest struct {
	LearnerID string `json:"learnerId" validate:"required"`
}

// Register mounts the API routes on mux.
func (h *AttemptHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/assessments/{id}", h.getAssessment)
	mux.HandleFunc("POST /v1/assessments/{id}/attempts", h.startAttempt)
	mux.HandleFunc("POST /v1/assessments/{id}/attempts/{attemptId}/submission", h.submitAttempt)
	mux.HandleFunc("GET /v1/assessments/{id}/attempts/{attemptId}/results", h.getResults)
}

func (h *AttemptHandler) getAssessment(w http.ResponseWriter, r *http.Request) {
	def, err := h.definitions.LoadAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *AttemptHandler) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: CodeBadRequest, Message: "malformed body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeValidation(w, CodeBadRequest, err)
		return
	}
	attempt, err := h.attempts.StartAttempt(r.Context(), r.PathValue("id"), req.LearnerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *AttemptHandler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorBody{Code: CodeInvalidSubmission, Message: "malformed body"})
		return
	}
	if sub.AttemptID == "" {
		sub.AttemptID = r.PathValue("attemptId")
	}
	if sub.AttemptID != r.PathValue("attemptId") {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorBody{Code: CodeInvalidSubmission, Message: "attempt id mismatch"})
		return
	}
	if err := h.validate.Struct(sub); err != nil {
		h.writeValidation(w, CodeInvalidSubmission, err)
		return
	}
	result, err := h.attempts.SubmitAttempt(r.Context(), r.PathValue("id"), sub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AttemptHandler) getResults(w http.ResponseWriter, r *http.Request) {
	result, err := h.attempts.GetResults(r.Context(), r.PathValue("id"), r.PathValue("attemptId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AttemptHandler) writeValidation(w http.ResponseWriter, code string, err error) {
	body := ErrorBody{Code: code, Message: err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Message = "validation failed"
		body.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Namespace()] = fe.Tag()
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, body)
}

func (h *AttemptHandler) writeError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("attempt api failure", "error", err)
		writeJSON(w, status, ErrorBody{Code: code, Message: http.StatusText(status)})
		return
	}
	writeJSON(w, status, ErrorBody{Code: code, Message: err.Error()})
}

// StatusFor maps domain errors to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAssessmentNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrAttemptsExhausted):
		return http.StatusConflict, CodeAttemptsExhausted
	case errors.Is(err, domain.ErrNotYetAvailable):
		return http.StatusForbidden, CodeNotYetAvailable
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, CodeAttemptNotFound
	case errors.Is(err, domain.ErrInvalidSubmission):
		return http.StatusUnprocessableEntity, CodeInvalidSubmission
	case errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound, CodeResultNotFound
	case errors.Is(err, domain.ErrDataIntegrity):
		return http.StatusUnprocessableEntity, CodeDataIntegrity
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
