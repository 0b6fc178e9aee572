package http

import (
	"context"
	"net/http"

	"assessment-session-service/internal/logger"
)

// CodeSessionNotFound marks an attempt with no live session on any instance.
const CodeSessionNotFound = "session_not_found"

// OwnerLookup reports which instance hosts a live session.
type OwnerLookup interface {
	Owner(ctx context.Context, attemptID string) (string, bool, error)
}

// SessionStatusHandler tells a live attempt from an abandoned one across instances.
type SessionStatusHandler struct {
	owners OwnerLookup
	log    *logger.Logger
}

// SessionStatus is the body of a live session lookup.
type SessionStatus struct {
	AttemptID string `json:"attemptId"`
	Live      bool   `json:"live"`
	Instance  string `json:"instance"`
}

func NewSessionStatusHandler(owners OwnerLookup, log *logger.Logger) *SessionStatusHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionStatusHandler{owners: owners, log: log}
}

func (h *SessionStatusHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/sessions/{attemptId}", h.status)
}

func (h *SessionStatusHandler) status(w http.ResponseWriter, r *http.Request) {
	attemptID := r.PathValue("attemptId")
	instance, ok, err := h.owners.Owner(r.Context(), attemptID)
	if err != nil {
		h.log.Error("session owner lookup failed", "attempt_id", attemptID, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: http.StatusText(http.StatusInternalServerError)})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorBody{Code: CodeSessionNotFound, Message: "no live session for attempt"})
		return
	}
	writeJSON(w, http.StatusOK, SessionStatus{AttemptID: attemptID, Live: true, Instance: instance})
}
