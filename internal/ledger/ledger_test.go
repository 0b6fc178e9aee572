package ledger

import (
	"testing"
	"time"

	"assessment-session-service/internal/domain"
)

func TestUpsertLastWriteWins(t *testing.T) {
	l := New([]string{"q1", "q2"})

	if err := l.Upsert("q1", domain.Answer{SelectedOption: "A"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := l.Upsert("q1", domain.Answer{SelectedOption: "B"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	snap := l.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected one record, got %d", len(snap))
	}
	if snap[0].SelectedOption != "B" {
		t.Fatalf("expected last write B, got %q", snap[0].SelectedOption)
	}
	if l.AnsweredCount() != 1 {
		t.Fatalf("expected 1 answered, got %d", l.AnsweredCount())
	}
}

func TestTouchTimeAccumulatesAndNeverDecreases(t *testing.T) {
	l := New([]string{"q1"})

	_ = l.TouchTime("q1", 5*time.Second)
	_ = l.TouchTime("q1", -3*time.Second)
	_ = l.TouchTime("q1", 1500*time.Millisecond)
	_ = l.TouchTime("q1", 1500*time.Millisecond)

	rec, ok := l.Record("q1")
	if !ok {
		t.Fatalf("expected record for q1")
	}
	if rec.SecondsSpent != 8 {
		t.Fatalf("expected 8 seconds, got %d", rec.SecondsSpent)
	}
	if rec.Answered() {
		t.Fatalf("time-only record must not count as answered")
	}
	if l.AnsweredCount() != 0 {
		t.Fatalf("expected 0 answered, got %d", l.AnsweredCount())
	}
}

func TestSnapshotFollowsQuestionOrderAndIsACopy(t *testing.T) {
	l := New([]string{"q1", "q2", "q3"})
	_ = l.Upsert("q3", domain.Answer{FreeText: "photosynthesis"})
	_ = l.Upsert("q1", domain.Answer{SelectedOption: "True"})

	snap := l.Snapshot()
	if len(snap) != 2 || snap[0].QuestionID != "q1" || snap[1].QuestionID != "q3" {
		t.Fatalf("unexpected snapshot order: %+v", snap)
	}

	snap[0].SelectedOption = "mutated"
	_ = l.Upsert("q1", domain.Answer{SelectedOption: "False"})
	if snap[0].SelectedOption != "mutated" {
		t.Fatalf("snapshot changed after later upsert")
	}
	rec, _ := l.Record("q1")
	if rec.SelectedOption != "False" {
		t.Fatalf("expected ledger to hold False, got %q", rec.SelectedOption)
	}
}

func TestUnknownQuestionRejected(t *testing.T) {
	l := New([]string{"q1"})
	if err := l.Upsert("nope", domain.Answer{SelectedOption: "A"}); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if err := l.TouchTime("nope", time.Second); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if len(l.Snapshot()) != 0 {
		t.Fatalf("expected empty snapshot")
	}
}
