package app_test

import (
	"context"
	"errors"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/clock"
	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeContent struct {
	defs map[string]domain.AssessmentDefinition
}

func (f *fakeContent) LoadAssessment(_ context.Context, id string) (domain.AssessmentDefinition, error) {
	def, ok := f.defs[id]
	if !ok {
		return domain.AssessmentDefinition{}, domain.ErrAssessmentNotFound
	}
	return def, nil
}

type fakeGateway struct {
	mu          sync.Mutex
	startErr    error
	started     chan struct{}
	release     chan struct{}
	submissions []domain.Submission
	errs        []error
	block       chan struct{}
}

func (g *fakeGateway) StartAttempt(_ context.Context, assessmentID, learnerID string) (domain.Attempt, error) {
	if g.started != nil {
		close(g.started)
		<-g.release
	}
	if g.startErr != nil {
		return domain.Attempt{}, g.startErr
	}
	return domain.Attempt{ID: "att-1", AssessmentID: assessmentID, LearnerID: learnerID}, nil
}

func (g *fakeGateway) SubmitAttempt(ctx context.Context, assessmentID string, sub domain.Submission) (domain.Result, error) {
	g.mu.Lock()
	g.submissions = append(g.submissions, sub)
	var err error
	if len(g.errs) > 0 {
		err = g.errs[0]
		g.errs = g.errs[1:]
	}
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Result{AttemptID: sub.AttemptID, AssessmentID: assessmentID, Score: 3, MaxScore: 3, Percentage: 100, Passed: true, Expired: sub.Expired}, nil
}

func (g *fakeGateway) GetResults(context.Context, string, string) (domain.Result, error) {
	return domain.Result{}, domain.ErrResultNotFound
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.submissions)
}

func (g *fakeGateway) sent(i int) domain.Submission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submissions[i]
}

type countingRewards struct {
	mu      sync.Mutex
	rewards []domain.Reward
}

func (r *countingRewards) Notify(_ context.Context, reward domain.Reward) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewards = append(r.rewards, reward)
	return nil
}

func (r *countingRewards) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rewards)
}

type harness struct {
	clock   *clock.Fake
	gateway *fakeGateway
	rewards *countingRewards
	content *fakeContent
	session *app.Session
}

func twoQuestionDefinition(limit int) domain.AssessmentDefinition {
	return domain.AssessmentDefinition{
		ID:               "bio-101",
		Kind:             domain.KindQuiz,
		TimeLimitSeconds: limit,
		PassThreshold:    60,
		Questions: []domain.Question{
			{ID: "q1", Kind: domain.AnswerSingleChoice, Options: []string{"A", "B", "C"}, Points: 2},
			{ID: "q2", Kind: domain.AnswerBoolean, Options: []string{"True", "False"}, Points: 1},
		},
	}
}

func newHarness(t *testing.T, def domain.AssessmentDefinition, cfg app.SessionConfig) *harness {
	t.Helper()
	return newHarnessFor(t, def, def.ID, cfg)
}

// newHarnessFor builds a session for assessmentID while the content only knows def.
func newHarnessFor(t *testing.T, def domain.AssessmentDefinition, assessmentID string, cfg app.SessionConfig) *harness {
	t.Helper()
	h := &harness{
		clock:   clock.NewFake(time.Unix(1_700_000_000, 0)),
		gateway: &fakeGateway{},
		rewards: &countingRewards{},
		content: &fakeContent{defs: map[string]domain.AssessmentDefinition{def.ID: def}},
	}
	h.session = app.NewSession(app.Dependencies{
		Content:  h.content,
		Attempts: h.gateway,
		Rewards:  h.rewards,
		Clock:    h.clock,
		Config:   cfg,
	}, assessmentID, "learner-1")
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	view, err := h.session.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.State != domain.StateInProgress || view.AttemptID != "att-1" {
		t.Fatalf("unexpected start view %+v", view)
	}
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.clock.Advance(time.Second)
	}
}

func TestScenarioTwoQuestionsSubmitsOnce(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.start(t)

	h.tick(10)
	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "B"}); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if _, moved, err := h.session.GoTo(1); err != nil || !moved {
		t.Fatalf("goto: moved=%v err=%v", moved, err)
	}
	h.tick(8)
	if _, err := h.session.Answer("q2", domain.Answer{SelectedOption: "True"}); err != nil {
		t.Fatalf("answer q2: %v", err)
	}

	res, err := h.session.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Passed || res.AttemptID != "att-1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if h.gateway.calls() != 1 {
		t.Fatalf("expected one submission, got %d", h.gateway.calls())
	}
	sent := h.gateway.sent(0)
	want := []domain.AnswerRecord{
		{QuestionID: "q1", SelectedOption: "B", SecondsSpent: 10},
		{QuestionID: "q2", SelectedOption: "True", SecondsSpent: 8},
	}
	if !reflect.DeepEqual(sent.Answers, want) {
		t.Fatalf("unexpected answers %+v", sent.Answers)
	}
	if sent.Expired || sent.TotalSecondsSpent != 18 {
		t.Fatalf("unexpected payload %+v", sent)
	}
	if view := h.session.View(); view.State != domain.StateCompleted || view.Result == nil {
		t.Fatalf("expected completed view with result, got %+v", view)
	}
	if h.rewards.count() != 1 {
		t.Fatalf("expected one rewards notification, got %d", h.rewards.count())
	}
}

func TestConcurrentSubmitsShareOneRequest(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.gateway.block = make(chan struct{})
	h.start(t)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]domain.Result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.session.Submit(context.Background())
		}(i)
	}
	waitFor(t, func() bool { return h.gateway.calls() == 1 })
	close(h.gateway.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].AttemptID != "att-1" {
			t.Fatalf("caller %d got %+v", i, results[i])
		}
	}
	if h.gateway.calls() != 1 {
		t.Fatalf("expected exactly one submission, got %d", h.gateway.calls())
	}
	if h.rewards.count() != 1 {
		t.Fatalf("expected one rewards notification, got %d", h.rewards.count())
	}
}

func TestExpiryForcesSubmission(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(3), app.DefaultSessionConfig())
	h.start(t)

	h.tick(3)
	waitFor(t, func() bool { return h.session.View().State == domain.StateCompleted })

	if h.gateway.calls() != 1 {
		t.Fatalf("expected one submission, got %d", h.gateway.calls())
	}
	sent := h.gateway.sent(0)
	if !sent.Expired || sent.TotalSecondsSpent != 3 {
		t.Fatalf("expected expired payload, got %+v", sent)
	}
	view := h.session.View()
	if !view.Expired || view.RemainingSeconds != 0 {
		t.Fatalf("unexpected view %+v", view)
	}

	if _, err := h.session.Submit(context.Background()); err != nil {
		t.Fatalf("submit after completion: %v", err)
	}
	if h.gateway.calls() != 1 {
		t.Fatalf("manual submit after expiry must not resend, got %d calls", h.gateway.calls())
	}
}

func TestLateExpiryChargesQuestionUpToDeadline(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(3), app.DefaultSessionConfig())
	h.start(t)

	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "A"}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	h.clock.Advance(10 * time.Second)
	waitFor(t, func() bool { return h.session.View().State == domain.StateCompleted })

	sent := h.gateway.sent(0)
	if !sent.Expired || sent.TotalSecondsSpent != 3 {
		t.Fatalf("expected expired payload capped at 3 seconds, got %+v", sent)
	}
	if got := secondsFor(sent.Answers, "q1"); got != 3 {
		t.Fatalf("expected q1 charged up to the deadline (3s), got %d", got)
	}
}

func TestSubmitRacingExpiryConvergesOnOneSubmission(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(3), app.DefaultSessionConfig())
	h.start(t)

	h.clock.Advance(3 * time.Second)
	if _, err := h.session.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitFor(t, func() bool { return h.session.View().State == domain.StateCompleted })

	if h.gateway.calls() != 1 {
		t.Fatalf("expected one submission, got %d", h.gateway.calls())
	}
	if !h.gateway.sent(0).Expired {
		t.Fatalf("submission after the deadline must be marked expired")
	}
}

func TestManualSubmitStopsCountdown(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(5), app.DefaultSessionConfig())
	h.gateway.block = make(chan struct{})
	h.start(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.session.Submit(context.Background())
	}()
	waitFor(t, func() bool { return h.gateway.calls() == 1 })
	waitFor(t, func() bool { return h.clock.Tickers() == 0 })

	h.clock.Advance(time.Minute)
	close(h.gateway.block)
	<-done

	if h.gateway.calls() != 1 {
		t.Fatalf("expiry after a manual submit must be absorbed, got %d calls", h.gateway.calls())
	}
	if h.gateway.sent(0).Expired {
		t.Fatalf("manual submission before the deadline must not be expired")
	}
}

func TestNavigationIsIdempotent(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.start(t)
	h.tick(2)

	first, moved, err := h.session.GoTo(1)
	if err != nil || !moved {
		t.Fatalf("first goto: moved=%v err=%v", moved, err)
	}
	answers := h.session.Answers()

	second, moved, err := h.session.GoTo(1)
	if err != nil || moved {
		t.Fatalf("repeated goto must be a no-op: moved=%v err=%v", moved, err)
	}
	if !reflect.DeepEqual(answers, h.session.Answers()) || first.RemainingSeconds != second.RemainingSeconds {
		t.Fatalf("repeated goto changed state")
	}

	for _, idx := range []int{-1, 2, 99} {
		if view, moved, err := h.session.GoTo(idx); err != nil || moved || view.QuestionIndex != 1 {
			t.Fatalf("out-of-range goto %d: moved=%v err=%v view=%+v", idx, moved, err, view)
		}
	}
}

func TestTimeAccountingAcrossRevisits(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.start(t)

	h.tick(5)
	h.session.GoTo(1)
	if got := secondsFor(h.session.Answers(), "q1"); got != 5 {
		t.Fatalf("expected 5 seconds on q1, got %d", got)
	}

	h.session.GoTo(0)
	h.session.GoTo(1)
	if got := secondsFor(h.session.Answers(), "q1"); got != 5 {
		t.Fatalf("revisit without time must keep 5 seconds, got %d", got)
	}

	h.session.GoTo(0)
	h.tick(3)
	h.session.GoTo(1)
	if got := secondsFor(h.session.Answers(), "q1"); got != 8 {
		t.Fatalf("expected 8 seconds on q1, got %d", got)
	}
}

func TestLedgerFrozenWhileSubmitting(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.gateway.block = make(chan struct{})
	h.start(t)

	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "B"}); err != nil {
		t.Fatalf("answer: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.session.Submit(context.Background())
	}()
	waitFor(t, func() bool { return h.gateway.calls() == 1 })

	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "C"}); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive while submitting, got %v", err)
	}
	if _, _, err := h.session.GoTo(1); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive for goto while submitting, got %v", err)
	}
	close(h.gateway.block)
	<-done

	if got := h.gateway.sent(0).Answers[0].SelectedOption; got != "B" {
		t.Fatalf("expected frozen answer B, got %q", got)
	}
}

func TestNetworkFailureIsRecoverable(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.gateway.errs = []error{&net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	h.start(t)

	h.session.Answer("q1", domain.Answer{SelectedOption: "A"})
	if _, err := h.session.Submit(context.Background()); err == nil {
		t.Fatalf("expected network failure")
	}
	view := h.session.View()
	if view.State != domain.StateError || view.Failure == nil || view.Failure.Kind != domain.FailureNetwork || !view.Failure.Retryable {
		t.Fatalf("expected retryable network failure, got %+v", view)
	}
	if h.rewards.count() != 0 {
		t.Fatalf("rewards must not be notified on failure")
	}
	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "C"}); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("ledger must stay frozen after failure, got %v", err)
	}

	h.tick(30)
	if _, err := h.session.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.gateway.calls() != 2 {
		t.Fatalf("expected two calls, got %d", h.gateway.calls())
	}
	if !reflect.DeepEqual(h.gateway.sent(0), h.gateway.sent(1)) {
		t.Fatalf("retry must resend the same snapshot: %+v vs %+v", h.gateway.sent(0), h.gateway.sent(1))
	}
	if h.session.View().State != domain.StateCompleted || h.rewards.count() != 1 {
		t.Fatalf("expected completion with one reward")
	}
}

func TestValidationFailureIsFatal(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.gateway.errs = []error{domain.ErrAttemptNotFound}
	h.start(t)

	if _, err := h.session.Submit(context.Background()); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
	view := h.session.View()
	if view.Failure == nil || view.Failure.Kind != domain.FailureValidation || view.Failure.Retryable {
		t.Fatalf("expected fatal validation failure, got %+v", view.Failure)
	}
	if _, err := h.session.Submit(context.Background()); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive on retry, got %v", err)
	}
	if h.gateway.calls() != 1 {
		t.Fatalf("expected one call, got %d", h.gateway.calls())
	}
}

func TestRetriesAreBounded(t *testing.T) {
	cfg := app.DefaultSessionConfig()
	cfg.MaxSubmitRetries = 1
	h := newHarness(t, twoQuestionDefinition(600), cfg)
	down := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	h.gateway.errs = []error{down, down, down}
	h.start(t)

	h.session.Submit(context.Background())
	if !h.session.View().Failure.Retryable {
		t.Fatalf("first failure should be retryable")
	}
	h.session.Submit(context.Background())
	if h.session.View().Failure.Retryable {
		t.Fatalf("failure past the retry bound must be fatal")
	}
	if _, err := h.session.Submit(context.Background()); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
	if h.gateway.calls() != 2 {
		t.Fatalf("expected two calls, got %d", h.gateway.calls())
	}
}

func TestStartSetupFailures(t *testing.T) {
	empty := twoQuestionDefinition(600)
	empty.Questions = nil
	future := twoQuestionDefinition(600)
	future.AvailableFrom = time.Unix(1_800_000_000, 0)

	cases := []struct {
		name     string
		def      domain.AssessmentDefinition
		startErr error
		lookup   string
		want     error
	}{
		{name: "unknown", def: twoQuestionDefinition(600), lookup: "missing", want: domain.ErrAssessmentNotFound},
		{name: "no questions", def: empty, want: domain.ErrDataIntegrity},
		{name: "not yet available", def: future, want: domain.ErrNotYetAvailable},
		{name: "exhausted", def: twoQuestionDefinition(600), startErr: domain.ErrAttemptsExhausted, want: domain.ErrAttemptsExhausted},
	}
	for _, tc := range cases {
		lookup := tc.def.ID
		if tc.lookup != "" {
			lookup = tc.lookup
		}
		h := newHarnessFor(t, tc.def, lookup, app.DefaultSessionConfig())
		h.gateway.startErr = tc.startErr
		view, err := h.session.Start(context.Background())
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if view.State != domain.StateError || view.Failure == nil || view.Failure.Kind != domain.FailureSetup || view.Failure.Retryable {
			t.Fatalf("%s: expected non-retryable setup failure, got %+v", tc.name, view)
		}
		if _, err := h.session.Submit(context.Background()); !errors.Is(err, domain.ErrSessionNotActive) {
			t.Fatalf("%s: submit after setup failure: %v", tc.name, err)
		}
		if h.clock.Tickers() != 0 {
			t.Fatalf("%s: countdown must not run", tc.name)
		}
	}
}

func TestCloseDuringStartLogsUnusedAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	def := twoQuestionDefinition(600)
	gateway := &fakeGateway{started: make(chan struct{}), release: make(chan struct{})}
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	session := app.NewSession(app.Dependencies{
		Content:  &fakeContent{defs: map[string]domain.AssessmentDefinition{def.ID: def}},
		Attempts: gateway,
		Clock:    fake,
		Log:      &logger.Logger{SugaredLogger: zap.New(core).Sugar()},
	}, def.ID, "learner-1")

	errs := make(chan error, 1)
	go func() {
		_, err := session.Start(context.Background())
		errs <- err
	}()
	<-gateway.started
	session.Close()
	close(gateway.release)

	if err := <-errs; !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	entries := logs.FilterMessage("session closed while starting, attempt left unused").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning about the unused attempt, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["attempt_id"]; got != "att-1" {
		t.Fatalf("expected attempt_id att-1 in log, got %v", got)
	}
	if fake.Tickers() != 0 {
		t.Fatalf("countdown must not start for a closed session")
	}
}

func TestAnswerValidation(t *testing.T) {
	def := twoQuestionDefinition(600)
	def.Questions = append(def.Questions, domain.Question{ID: "q3", Kind: domain.AnswerFreeText, Points: 1})
	h := newHarness(t, def, app.DefaultSessionConfig())

	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "A"}); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("answer before start: %v", err)
	}
	h.start(t)

	if _, err := h.session.Answer("q9", domain.Answer{SelectedOption: "A"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "Z"}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer for unknown option, got %v", err)
	}
	if _, err := h.session.Answer("q1", domain.Answer{FreeText: "B"}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer for free text on choice, got %v", err)
	}
	view, err := h.session.Answer("q3", domain.Answer{FreeText: "mitochondria"})
	if err != nil {
		t.Fatalf("free text answer: %v", err)
	}
	if view.QuestionIndex != 2 || view.Answered != 1 {
		t.Fatalf("answer must focus its question, got %+v", view)
	}
}

func TestCloseStopsCountdownAndSubscriptions(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.start(t)

	updates, cancel := h.session.Subscribe()
	defer cancel()
	<-updates

	h.tick(1)
	waitFor(t, func() bool { return h.session.View().RemainingSeconds == 599 })

	h.session.Close()
	h.session.Close()
	waitFor(t, func() bool { return h.clock.Tickers() == 0 })

	for range updates {
	}
	if _, err := h.session.Answer("q1", domain.Answer{SelectedOption: "A"}); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := h.session.Submit(context.Background()); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if h.gateway.calls() != 0 {
		t.Fatalf("closed session must not submit")
	}
}

func TestSubscribeReceivesTicks(t *testing.T) {
	h := newHarness(t, twoQuestionDefinition(600), app.DefaultSessionConfig())
	h.start(t)

	updates, cancel := h.session.Subscribe()
	defer cancel()

	initial := <-updates
	if initial.RemainingSeconds != 600 {
		t.Fatalf("expected initial 600 seconds, got %d", initial.RemainingSeconds)
	}
	h.tick(1)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case view := <-updates:
			if view.RemainingSeconds == 599 {
				return
			}
		case <-deadline:
			t.Fatalf("did not receive tick update")
		}
	}
}

func secondsFor(records []domain.AnswerRecord, questionID string) int {
	for _, r := range records {
		if r.QuestionID == questionID {
			return r.SecondsSpent
		}
	}
	return -1
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
