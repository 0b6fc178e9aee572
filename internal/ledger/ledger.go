// Package ledger keeps a learner's current answers and per-question time during an attempt.
//
// A Ledger has a single writer: the owning session serializes every call, so the type itself
// carries no locking.
package ledger

import (
	"time"

	"assessment-session-service/internal/domain"
)

// Ledger maps question ids to the latest answer and the accumulated time spent on each question.
type Ledger struct {
	order   []string
	entries map[string]*entry
}

type entry struct {
	answer   domain.Answer
	answered bool
	spent    time.Duration
}

// New creates a ledger for the given questions; snapshots follow this order.
func New(questionIDs []string) *Ledger {
	order := make([]string, len(questionIDs))
	copy(order, questionIDs)
	return &Ledger{
		order:   order,
		entries: make(map[string]*entry, len(order)),
	}
}

// Upsert records the answer for questionID, replacing any previous one.
func (l *Ledger) Upsert(questionID string, answer domain.Answer) error {
	e, err := l.entry(questionID)
	if err != nil {
		return err
	}
	e.answer = answer
	e.answered = true
	return nil
}

// TouchTime adds delta to the time spent on questionID. Non-positive deltas are ignored so the
// total never decreases.
func (l *Ledger) TouchTime(questionID string, delta time.Duration) error {
	e, err := l.entry(questionID)
	if err != nil {
		return err
	}
	if delta > 0 {
		e.spent += delta
	}
	return nil
}

// Snapshot returns a copy of every touched or answered record in question order.
func (l *Ledger) Snapshot() []domain.AnswerRecord {
	records := make([]domain.AnswerRecord, 0, len(l.entries))
	for _, id := range l.order {
		e, ok := l.entries[id]
		if !ok {
			continue
		}
		records = append(records, toRecord(id, e))
	}
	return records
}

// Record returns the current record for questionID.
func (l *Ledger) Record(questionID string) (domain.AnswerRecord, bool) {
	e, ok := l.entries[questionID]
	if !ok {
		return domain.AnswerRecord{}, false
	}
	return toRecord(questionID, e), true
}

// AnsweredCount is the number of questions that have an answer.
func (l *Ledger) AnsweredCount() int {
	n := 0
	for _, e := range l.entries {
		if e.answered {
			n++
		}
	}
	return n
}

func (l *Ledger) entry(questionID string) (*entry, error) {
	if e, ok := l.entries[questionID]; ok {
		return e, nil
	}
	if !l.known(questionID) {
		return nil, domain.ErrQuestionNotFound
	}
	e := &entry{}
	l.entries[questionID] = e
	return e, nil
}

func (l *Ledger) known(questionID string) bool {
	for _, id := range l.order {
		if id == questionID {
			return true
		}
	}
	return false
}

func toRecord(id string, e *entry) domain.AnswerRecord {
	rec := domain.AnswerRecord{
		QuestionID:   id,
		SecondsSpent: int(e.spent / time.Second),
	}
	if e.answered {
		rec.SelectedOption = e.answer.SelectedOption
		rec.FreeText = e.answer.FreeText
	}
	return rec
}
