package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"assessment-session-service/internal/clock"
	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/ledger"
	"assessment-session-service/internal/logger"
	"assessment-session-service/internal/submission"
)

// ContentProvider supplies assessment definitions.
type ContentProvider interface {
	LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error)
}

// AttemptGateway is the persistence boundary: it issues attempts, scores submissions and serves results.
type AttemptGateway interface {
	StartAttempt(ctx context.Context, assessmentID, learnerID string) (domain.Attempt, error)
	SubmitAttempt(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error)
	GetResults(ctx context.Context, assessmentID, attemptID string) (domain.Result, error)
}

// Submitter sends one submission and classifies failures (see submission.Coordinator).
type Submitter interface {
	Submit(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error)
}

// RewardsSink receives the outcome of a completed attempt.
type RewardsSink interface {
	Notify(ctx context.Context, reward domain.Reward) error
}

// SessionConfig tunes submission and timer behaviour.
type SessionConfig struct {
	MaxSubmitRetries int
	SubmitTimeout    time.Duration
	TickInterval     time.Duration
	RewardTimeout    time.Duration
}

// DefaultSessionConfig returns the settings used when none are configured.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxSubmitRetries: 3,
		SubmitTimeout:    15 * time.Second,
		TickInterval:     time.Second,
		RewardTimeout:    5 * time.Second,
	}
}

// Dependencies wires a session to its collaborators. Submitter defaults to a
// submission.Coordinator over Attempts, Clock to the real clock.
type Dependencies struct {
	Content   ContentProvider
	Attempts  AttemptGateway
	Submitter Submitter
	Rewards   RewardsSink
	Clock     clock.Clock
	Log       *logger.Logger
	Config    SessionConfig
}

type trigger int

const (
	triggerManual trigger = iota
	triggerExpiry
)

// inflight lets concurrent submit calls share one outbound request.
type inflight struct {
	done   chan struct{}
	result domain.Result
	err    error
}

// Session is one learner's attempt at an assessment. All transitions go through its
// exported methods and are serialized by mu.
type Session struct {
	assessmentID string
	learnerID    string

	content   ContentProvider
	attempts  AttemptGateway
	submitter Submitter
	rewards   RewardsSink
	clock     clock.Clock
	cfg       SessionConfig
	log       *logger.Logger

	mu        sync.Mutex
	state     domain.SessionState
	starting  bool
	closed    bool
	def       domain.AssessmentDefinition
	attempt   domain.Attempt
	answers   *ledger.Ledger
	countdown *clock.Countdown

	index     int
	focusedAt time.Time
	startedAt time.Time
	deadline  time.Time
	remaining int
	expired   bool

	// guard is the submission guard: set when a submission is dispatched, released only
	// after a retryable failure.
	guard    bool
	frozen   *domain.Submission
	inflight *inflight
	retries  int
	failure  *domain.Failure
	result   *domain.Result
	rewarded bool

	updatedAt   time.Time
	subscribers map[chan domain.SessionView]struct{}
}

// NewSession creates a session in not_started state.
func NewSession(deps Dependencies, assessmentID, learnerID string) *Session {
	cfg := deps.Config
	if cfg == (SessionConfig{}) {
		cfg = DefaultSessionConfig()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	submitter := deps.Submitter
	if submitter == nil {
		submitter = submission.NewCoordinator(deps.Attempts, 0, log)
	}
	return &Session{
		assessmentID: assessmentID,
		learnerID:    learnerID,
		content:      deps.Content,
		attempts:     deps.Attempts,
		submitter:    submitter,
		rewards:      deps.Rewards,
		clock:        clk,
		cfg:          cfg,
		log:          log.With("assessment_id", assessmentID, "learner_id", learnerID),
		state:        domain.StateNotStarted,
		updatedAt:    clk.Now(),
		subscribers:  make(map[chan domain.SessionView]struct{}),
	}
}

// Start loads the definition, creates an attempt and starts the countdown.
// Setup failures leave the session in a non-retryable error state.
func (s *Session) Start(ctx context.Context) (domain.SessionView, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.SessionView{}, domain.ErrSessionClosed
	}
	if s.state != domain.StateNotStarted || s.starting {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, domain.ErrSessionNotActive
	}
	s.starting = true
	s.mu.Unlock()

	def, attempt, err := s.prepare(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if s.closed {
		if err == nil {
			s.log.Warn("session closed while starting, attempt left unused",
				"attempt_id", attempt.ID,
				"assessment_id", s.assessmentID,
				"learner_id", s.learnerID,
			)
		}
		return s.viewLocked(), domain.ErrSessionClosed
	}
	if err != nil {
		kind := domain.FailureSetup
		if !domain.IsSetupError(err) {
			kind = submission.Classify(err).FailureKind()
		}
		s.state = domain.StateError
		s.failure = &domain.Failure{Kind: kind, Reason: err.Error()}
		s.log.Warn("session start failed", "error", err, "kind", string(kind))
		return s.broadcastLocked(), err
	}

	now := s.clock.Now()
	s.def = def
	s.attempt = attempt
	s.answers = ledger.New(def.QuestionIDs())
	s.index = 0
	s.startedAt = now
	s.focusedAt = now
	s.deadline = now.Add(def.TimeLimit())
	s.remaining = def.TimeLimitSeconds
	s.countdown = clock.NewCountdown(s.clock, s.cfg.TickInterval)
	if err := s.countdown.Start(def.TimeLimit(), s.onTick, s.onExpire); err != nil {
		s.state = domain.StateError
		s.failure = &domain.Failure{Kind: domain.FailureSetup, Reason: err.Error()}
		return s.broadcastLocked(), err
	}
	s.state = domain.StateInProgress
	s.log.Info("session started",
		"attempt_id", attempt.ID,
		"questions", len(def.Questions),
		"time_limit_seconds", def.TimeLimitSeconds,
	)
	return s.broadcastLocked(), nil
}

func (s *Session) prepare(ctx context.Context) (domain.AssessmentDefinition, domain.Attempt, error) {
	def, err := s.content.LoadAssessment(ctx, s.assessmentID)
	if err != nil {
		return domain.AssessmentDefinition{}, domain.Attempt{}, fmt.Errorf("load assessment: %w", err)
	}
	if err := def.Validate(); err != nil {
		return domain.AssessmentDefinition{}, domain.Attempt{}, err
	}
	if !def.AvailableFrom.IsZero() && s.clock.Now().Before(def.AvailableFrom) {
		return domain.AssessmentDefinition{}, domain.Attempt{}, domain.ErrNotYetAvailable
	}
	attempt, err := s.attempts.StartAttempt(ctx, s.assessmentID, s.learnerID)
	if err != nil {
		return domain.AssessmentDefinition{}, domain.Attempt{}, fmt.Errorf("start attempt: %w", err)
	}
	return def, attempt, nil
}

// Answer records an answer for questionID and moves focus to it.
func (s *Session) Answer(questionID string, answer domain.Answer) (domain.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return s.viewLocked(), err
	}
	idx := s.def.QuestionIndex(questionID)
	if idx < 0 {
		return s.viewLocked(), domain.ErrQuestionNotFound
	}
	if !fits(s.def.Questions[idx], answer) {
		return s.viewLocked(), domain.ErrInvalidAnswer
	}

	s.refocusLocked(idx)
	if err := s.answers.Upsert(questionID, answer); err != nil {
		return s.viewLocked(), err
	}
	return s.broadcastLocked(), nil
}

// GoTo moves focus to index. Out-of-range or unchanged indexes are no-ops and report false.
func (s *Session) GoTo(index int) (domain.SessionView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return s.viewLocked(), false, err
	}
	if index < 0 || index >= len(s.def.Questions) || index == s.index {
		return s.viewLocked(), false, nil
	}
	s.refocusLocked(index)
	return s.broadcastLocked(), true, nil
}

// Submit sends the answers. Calls made while a submission is in flight wait for it and share
// its outcome; after completion the stored result is returned.
func (s *Session) Submit(ctx context.Context) (domain.Result, error) {
	return s.submit(ctx, triggerManual)
}

func (s *Session) submit(ctx context.Context, trig trigger) (domain.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Result{}, domain.ErrSessionClosed
	}

	switch s.state {
	case domain.StateCompleted:
		res := *s.result
		s.mu.Unlock()
		return res, nil

	case domain.StateSubmitting:
		fl := s.inflight
		s.mu.Unlock()
		if trig == triggerExpiry {
			return domain.Result{}, nil
		}
		select {
		case <-fl.done:
			return fl.result, fl.err
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		}

	case domain.StateInProgress:
		if s.guard {
			s.mu.Unlock()
			return domain.Result{}, domain.ErrSessionNotActive
		}
		s.freezeLocked(trig)

	case domain.StateError:
		if trig == triggerExpiry || s.failure == nil || !s.failure.Retryable || s.frozen == nil {
			reason := ""
			if s.failure != nil {
				reason = s.failure.Reason
			}
			s.mu.Unlock()
			return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrSessionNotActive, reason)
		}
		s.log.Info("retrying submission", "attempt_id", s.attempt.ID, "retries", s.retries)

	default:
		s.mu.Unlock()
		return domain.Result{}, domain.ErrSessionNotActive
	}

	s.guard = true
	s.state = domain.StateSubmitting
	s.failure = nil
	fl := &inflight{done: make(chan struct{})}
	s.inflight = fl
	sub := *s.frozen
	cd := s.countdown
	s.broadcastLocked()
	s.mu.Unlock()

	if cd != nil {
		cd.Stop()
	}

	sendCtx := context.WithoutCancel(ctx)
	if s.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, s.cfg.SubmitTimeout)
		defer cancel()
	}
	res, err := s.submitter.Submit(sendCtx, s.def.ID, sub)
	s.finishSubmission(fl, res, err)
	return fl.result, fl.err
}

// freezeLocked finalizes time accounting and captures the payload that every attempt to
// submit this session will send.
func (s *Session) freezeLocked(trig trigger) {
	now := s.clock.Now()
	s.refocusLocked(s.index)

	s.remaining = clock.RemainingSeconds(s.deadline, now)
	expired := trig == triggerExpiry || s.remaining == 0
	if expired {
		s.remaining = 0
		s.expired = true
		s.state = domain.StateTimeExpired
		s.broadcastLocked()
	}

	spent := int(now.Sub(s.startedAt) / time.Second)
	if spent > s.def.TimeLimitSeconds {
		spent = s.def.TimeLimitSeconds
	}
	if spent < 0 {
		spent = 0
	}
	s.frozen = &domain.Submission{
		AttemptID:         s.attempt.ID,
		Answers:           s.answers.Snapshot(),
		TotalSecondsSpent: spent,
		Expired:           expired,
	}
}

func (s *Session) finishSubmission(fl *inflight, res domain.Result, err error) {
	s.mu.Lock()
	var reward *domain.Reward
	if err == nil {
		s.state = domain.StateCompleted
		s.result = &res
		s.failure = nil
		if s.rewards != nil && !s.rewarded {
			s.rewarded = true
			reward = &domain.Reward{
				LearnerID:    s.learnerID,
				AssessmentID: s.def.ID,
				AttemptID:    s.attempt.ID,
				Percentage:   res.Percentage,
				Passed:       res.Passed,
				CompletedAt:  s.clock.Now(),
			}
		}
		s.log.Info("session completed",
			"attempt_id", s.attempt.ID,
			"percentage", res.Percentage,
			"passed", res.Passed,
			"expired", s.frozen.Expired,
		)
	} else {
		s.retries++
		var serr *submission.Error
		if !errors.As(err, &serr) {
			serr = submission.Classify(err)
		}
		retryable := serr.Retryable() && s.retries <= s.cfg.MaxSubmitRetries
		s.state = domain.StateError
		s.failure = &domain.Failure{
			Kind:      serr.FailureKind(),
			Reason:    err.Error(),
			Retryable: retryable,
		}
		if retryable {
			s.guard = false
		}
		s.log.Warn("submission failed",
			"attempt_id", s.attempt.ID,
			"kind", string(serr.Kind),
			"retryable", retryable,
			"retries", s.retries,
		)
	}
	fl.result, fl.err = res, err
	s.inflight = nil
	s.broadcastLocked()
	s.mu.Unlock()
	close(fl.done)

	if reward != nil {
		s.notifyRewards(*reward)
	}
}

func (s *Session) notifyRewards(reward domain.Reward) {
	ctx := context.Background()
	if s.cfg.RewardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RewardTimeout)
		defer cancel()
	}
	if err := s.rewards.Notify(ctx, reward); err != nil {
		s.log.Error("rewards notification failed", "attempt_id", reward.AttemptID, "error", err)
	}
}

func (s *Session) onTick(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != domain.StateInProgress {
		return
	}
	s.remaining = remaining
	s.broadcastLocked()
}

func (s *Session) onExpire() {
	if _, err := s.submit(context.Background(), triggerExpiry); err != nil {
		s.log.Warn("expiry submission failed", "error", err)
	}
}

// refocusLocked charges the elapsed time to the focused question and moves focus to index.
func (s *Session) refocusLocked(index int) {
	now := s.clock.Now()
	// Time past the deadline is not charged to any question.
	charged := now
	if charged.After(s.deadline) {
		charged = s.deadline
	}
	focused := s.def.Questions[s.index].ID
	_ = s.answers.TouchTime(focused, charged.Sub(s.focusedAt))
	s.focusedAt = now
	s.index = index
}

func (s *Session) activeLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != domain.StateInProgress {
		return domain.ErrSessionNotActive
	}
	return nil
}

func fits(q domain.Question, answer domain.Answer) bool {
	switch q.Kind {
	case domain.AnswerFreeText:
		return answer.FreeText != "" && answer.SelectedOption == ""
	case domain.AnswerBoolean:
		if answer.FreeText != "" || answer.SelectedOption == "" {
			return false
		}
		if len(q.Options) == 0 {
			return answer.SelectedOption == "True" || answer.SelectedOption == "False"
		}
		return q.HasOption(answer.SelectedOption)
	default:
		return answer.FreeText == "" && q.HasOption(answer.SelectedOption)
	}
}

// Close tears the session down: the countdown stops and subscriptions end.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	cd := s.countdown
	s.mu.Unlock()

	if cd != nil {
		cd.Stop()
	}
}

// View returns the current session snapshot.
func (s *Session) View() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Attempt returns the attempt issued at start.
func (s *Session) Attempt() domain.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Definition returns the loaded assessment definition.
func (s *Session) Definition() domain.AssessmentDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}

// Answers returns a copy of the answer ledger.
func (s *Session) Answers() []domain.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answers == nil {
		return nil
	}
	return s.answers.Snapshot()
}

// Result returns the stored result once the session completed.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// Subscribe returns a channel of view updates, starting with the current view.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	s.mu.Lock()
	ch <- s.viewLocked()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionView {
	s.updatedAt = s.clock.Now()
	view := s.viewLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Slow reader: drop its oldest update rather than block the session.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

func (s *Session) viewLocked() domain.SessionView {
	view := domain.SessionView{
		AttemptID:        s.attempt.ID,
		AssessmentID:     s.assessmentID,
		State:            s.state,
		QuestionIndex:    s.index,
		QuestionCount:    len(s.def.Questions),
		RemainingSeconds: s.remaining,
		Expired:          s.expired,
		UpdatedAt:        s.updatedAt,
	}
	if s.answers != nil {
		view.Answered = s.answers.AnsweredCount()
	}
	if s.failure != nil {
		f := *s.failure
		view.Failure = &f
	}
	if s.result != nil {
		r := *s.result
		view.Result = &r
	}
	return view
}
