package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/logger"
	"assessment-session-service/internal/submission"
	"github.com/gorilla/websocket"
)

// WSHandler runs one assessment session per WebSocket connection.
type WSHandler struct {
	service  *app.AssessmentService
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewWSHandler(service *app.AssessmentService, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With("component", "ws"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
	FreeText       string `json:"freeText"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type startedPayload struct {
	Session    domain.SessionView          `json:"session"`
	Assessment domain.AssessmentDefinition `json:"assessment"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string              `json:"message"`
	Kind      string              `json:"kind,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
	Session   *domain.SessionView `json:"session,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and drives a session over them:
// inbound answer/goto/submit, outbound started/session/result/error.
// The session is abandoned when the connection closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	assessmentID := r.URL.Query().Get("assessmentId")
	learnerID := r.URL.Query().Get("learnerId")
	if assessmentID == "" || learnerID == "" {
		http.Error(w, "missing assessmentId or learnerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session, view, err := h.service.Start(r.Context(), assessmentID, learnerID)
	if err != nil {
		payload := errorPayload{Message: err.Error(), Kind: string(domain.FailureSetup), Session: &view}
		if view.Failure != nil {
			payload.Kind = string(view.Failure.Kind)
		}
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: payload})
		return
	}
	attemptID := view.AttemptID
	log := h.log.With("attempt_id", attemptID, "learner_id", learnerID)

	updates, cancel, err := h.service.Subscribe(r.Context(), attemptID)
	if err != nil {
		h.service.Abandon(r.Context(), attemptID)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var submits sync.WaitGroup

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	emitError := func(err error) {
		payload := errorPayload{Message: err.Error()}
		var serr *submission.Error
		if errors.As(err, &serr) {
			payload.Kind = string(serr.FailureKind())
			payload.Retryable = serr.Retryable()
		}
		emit(outboundMessage[any]{Type: "error", Payload: payload})
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				emit(outboundMessage[any]{Type: "session", Payload: update})
			case <-closeSignals:
				return
			}
		}
	}()

	emit(outboundMessage[any]{Type: "started", Payload: startedPayload{Session: view, Assessment: session.Definition()}})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			_, err := h.service.Answer(r.Context(), attemptID, payload.QuestionID, domain.Answer{
				SelectedOption: payload.SelectedOption,
				FreeText:       payload.FreeText,
			})
			if err != nil {
				emitError(err)
			}
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid goto payload"}})
				continue
			}
			if _, err := h.service.GoTo(r.Context(), attemptID, payload.Index); err != nil {
				emitError(err)
			}
		case "submit":
			// The read loop keeps running so the client sees progress while the request is in flight.
			submits.Add(1)
			go func() {
				defer submits.Done()
				result, err := h.service.Submit(context.WithoutCancel(r.Context()), attemptID)
				if err != nil {
					emitError(err)
					return
				}
				emit(outboundMessage[any]{Type: "result", Payload: result})
			}()
		default:
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	h.service.Abandon(context.Background(), attemptID)
	close(closeSignals)
	<-updatesDone
	submits.Wait()
	close(send)
	<-writerDone
	log.Debug("ws session closed")
}
