package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketSessionFlow(t *testing.T) {
	server, sessions := newWSServer(t)

	conn := dial(t, server, "/ws?assessmentId=geo-1&learnerId=learner-1")
	defer conn.Close()

	// Expect started event first.
	msgType, payload := readNext(conn, t, "started")
	if msgType != "started" || payload["session"] == nil || payload["assessment"] == nil {
		t.Fatalf("unexpected started payload %+v", payload)
	}
	if sessions.Len() != 1 {
		t.Fatalf("expected a live session")
	}

	send(t, conn, map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "q1", "selectedOption": "Paris"},
	})
	send(t, conn, map[string]any{"type": "goto", "payload": map[string]any{"index": 1}})
	send(t, conn, map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "q2", "freeText": "Berlin"},
	})
	send(t, conn, map[string]any{"type": "submit"})

	var result map[string]any
	for i := 0; i < 20 && result == nil; i++ {
		typ, p := readNext(conn, t, "")
		switch typ {
		case "result":
			result = p
		case "error":
			t.Fatalf("unexpected error %+v", p)
		}
	}
	if result == nil {
		t.Fatalf("expected result message")
	}
	if result["passed"] != true || result["percentage"] != float64(100) {
		t.Fatalf("unexpected result %+v", result)
	}

	conn.Close()
	waitUntil(t, func() bool { return sessions.Len() == 0 })
}

func TestWebSocketRejectsInvalidAnswers(t *testing.T) {
	server, _ := newWSServer(t)
	conn := dial(t, server, "/ws?assessmentId=geo-1&learnerId=learner-1")
	defer conn.Close()
	readNext(conn, t, "started")

	send(t, conn, map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "q1", "selectedOption": "Marseille"},
	})
	for i := 0; i < 10; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "error" {
			if p["message"] != domain.ErrInvalidAnswer.Error() {
				t.Fatalf("unexpected error payload %+v", p)
			}
			return
		}
	}
	t.Fatalf("expected error message")
}

func TestWebSocketSetupFailure(t *testing.T) {
	server, sessions := newWSServer(t)
	conn := dial(t, server, "/ws?assessmentId=missing&learnerId=learner-1")
	defer conn.Close()

	_, payload := readNext(conn, t, "error")
	if payload["kind"] != string(domain.FailureSetup) {
		t.Fatalf("expected setup failure, got %+v", payload)
	}
	if sessions.Len() != 0 {
		t.Fatalf("failed start must not register a session")
	}
}

func TestWebSocketRequiresParams(t *testing.T) {
	server, _ := newWSServer(t)
	resp, err := http.Get(server.URL + "/ws?assessmentId=geo-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func newWSServer(t *testing.T) (*httptest.Server, *memory.SessionStore) {
	t.Helper()
	catalog := memory.NewCatalog(sampleAssessment())
	sessions := memory.NewSessionStore()
	service := app.NewAssessmentService(sessions, app.Dependencies{
		Content:  memory.NewAssessmentRepository(catalog, time.Minute),
		Attempts: memory.NewAttemptStore(catalog),
		Config:   app.DefaultSessionConfig(),
	})
	wsHandler := NewWSHandler(service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, sessions
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func sampleAssessment() domain.StoredAssessment {
	return domain.StoredAssessment{
		Definition: domain.AssessmentDefinition{
			ID:               "geo-1",
			Title:            "Capitals",
			Kind:             domain.KindQuiz,
			TimeLimitSeconds: 300,
			PassThreshold:    50,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Capital of France?", Kind: domain.AnswerSingleChoice, Options: []string{"Paris", "Lyon"}, Points: 1},
				{ID: "q2", Prompt: "Capital of Germany?", Kind: domain.AnswerFreeText, Points: 1},
			},
		},
		AnswerKey: domain.AnswerKey{"q1": {"Paris"}, "q2": {"Berlin"}},
	}
}
