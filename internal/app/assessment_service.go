package app

import (
	"context"

	"assessment-session-service/internal/domain"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(attemptID string, session *Session)
	Get(attemptID string) (*Session, bool)
	Delete(attemptID string)
}

// AssessmentService contains the session use cases exposed to transports.
type AssessmentService struct {
	sessions SessionRepository
	deps     Dependencies
}

func NewAssessmentService(sessions SessionRepository, deps Dependencies) *AssessmentService {
	return &AssessmentService{sessions: sessions, deps: deps}
}

// Start creates a fresh session and attempt. A failed start is not registered.
func (s *AssessmentService) Start(ctx context.Context, assessmentID, learnerID string) (*Session, domain.SessionView, error) {
	session := NewSession(s.deps, assessmentID, learnerID)
	view, err := session.Start(ctx)
	if err != nil {
		session.Close()
		return nil, view, err
	}
	s.sessions.Put(view.AttemptID, session)
	return session, view, nil
}

// Session looks up a live session by attempt id.
func (s *AssessmentService) Session(attemptID string) (*Session, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Answer records an answer in a live session.
func (s *AssessmentService) Answer(_ context.Context, attemptID, questionID string, answer domain.Answer) (domain.SessionView, error) {
	session, err := s.Session(attemptID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.Answer(questionID, answer)
}

// GoTo moves the focused question of a live session.
func (s *AssessmentService) GoTo(_ context.Context, attemptID string, index int) (domain.SessionView, error) {
	session, err := s.Session(attemptID)
	if err != nil {
		return domain.SessionView{}, err
	}
	view, _, err := session.GoTo(index)
	return view, err
}

// Submit submits a live session.
func (s *AssessmentService) Submit(ctx context.Context, attemptID string) (domain.Result, error) {
	session, err := s.Session(attemptID)
	if err != nil {
		return domain.Result{}, err
	}
	return session.Submit(ctx)
}

// Subscribe returns a channel that receives view updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AssessmentService) Subscribe(_ context.Context, attemptID string) (<-chan domain.SessionView, func(), error) {
	session, err := s.Session(attemptID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Results fetches a scored attempt from persistence.
func (s *AssessmentService) Results(ctx context.Context, assessmentID, attemptID string) (domain.Result, error) {
	if session, ok := s.sessions.Get(attemptID); ok {
		if res, done := session.Result(); done {
			return res, nil
		}
	}
	return s.deps.Attempts.GetResults(ctx, assessmentID, attemptID)
}

// Abandon tears down a session and drops it from the registry.
func (s *AssessmentService) Abandon(_ context.Context, attemptID string) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(attemptID)
}
