package scorecard

import (
	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/errors"
)

// Engine holds this client's view of the per-question scorecard. It is
// mutated only from the owning client's handler loop, so no locking here.
//
// Invariants: at most one entry is current; every entry before the active
// index is terminal; every entry after it is pending.
type Engine struct {
	playerID string

	roundID     string
	entries     []domain.ScorecardEntry
	activeIndex int
	done        bool

	// outcomes already applied, keyed by question index. Re-applying an
	// outcome for the same (roundID, index) leaves the entries untouched.
	applied map[int]struct{}
}

func NewEngine(playerID string) *Engine {
	return &Engine{playerID: playerID}
}

// Initialize resets the engine for a new round: all entries pending except
// index 0, which becomes current.
func (e *Engine) Initialize(roundID string, questions []domain.Question) {
	e.roundID = roundID
	e.entries = make([]domain.ScorecardEntry, len(questions))
	e.activeIndex = 0
	e.done = false
	e.applied = make(map[int]struct{})

	for i, q := range questions {
		st := domain.StatusPending
		if i == 0 {
			st = domain.StatusCurrent
		}
		e.entries[i] = domain.ScorecardEntry{
			Index:  i,
			A:      q.A,
			B:      q.B,
			Status: st,
		}
	}
}

func (e *Engine) RoundID() string    { return e.roundID }
func (e *Engine) ActiveIndex() int   { return e.activeIndex }
func (e *Engine) Finished() bool     { return e.done }
func (e *Engine) QuestionCount() int { return len(e.entries) }

// Entries returns a copy of the scorecard.
func (e *Engine) Entries() []domain.ScorecardEntry {
	out := make([]domain.ScorecardEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Entry returns the entry at index, or false if out of range.
func (e *Engine) Entry(index int) (domain.ScorecardEntry, bool) {
	if index < 0 || index >= len(e.entries) {
		return domain.ScorecardEntry{}, false
	}
	return e.entries[index], true
}

// RecordLocalAnswer marks the active question correct or wrong by exact
// integer equality. It never advances the active index; in duel mode
// advancement is driven only by host events, in solo mode by Advance.
func (e *Engine) RecordLocalAnswer(index, input int, elapsedMs int64) error {
	if index != e.activeIndex {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("answer for question %d but question %d is active", index, e.activeIndex))
	}

	entry := &e.entries[index]
	if entry.Status != domain.StatusCurrent {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("question %d is %s, not current", index, entry.Status))
	}

	in := input
	entry.Input = &in
	entry.ElapsedMs = elapsedMs
	if input == entry.A*entry.B {
		entry.Status = domain.StatusCorrect
	} else {
		entry.Status = domain.StatusWrong
	}

	return nil
}

// ApplyOutcome finalizes an entry from the host's winner event. Idempotent:
// a redelivered outcome for an already-finalized question is a no-op. The
// local player's own last-recorded answer stays authoritative for
// correctness; the outcome only decides fastest/slower/bothWrong and never
// downgrades a locally recorded correct to wrong.
func (e *Engine) ApplyOutcome(w domain.EventWinner) error {
	if w.RoundID != e.roundID {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("outcome for round %s, active round is %s", w.RoundID, e.roundID))
	}
	if w.QuestionIndex < 0 || w.QuestionIndex >= len(e.entries) {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("outcome for question %d, round has %d", w.QuestionIndex, len(e.entries)))
	}

	if _, ok := e.applied[w.QuestionIndex]; ok {
		return nil
	}
	e.applied[w.QuestionIndex] = struct{}{}

	entry := &e.entries[w.QuestionIndex]
	entry.Status = e.resolve(*entry, w)
	if w.A != 0 {
		entry.A, entry.B = w.A, w.B
	}

	return nil
}

func (e *Engine) resolve(entry domain.ScorecardEntry, w domain.EventWinner) domain.Status {
	switch {
	case w.BothWrong:
		return domain.StatusBothWrong
	case w.Correct && w.PlayerID == e.playerID:
		return domain.StatusFastest
	case w.Correct && w.PlayerID != e.playerID:
		// Credited as "correct but not first" only if we also got it right.
		if entry.Status == domain.StatusCorrect {
			return domain.StatusSlower
		}
		return domain.StatusWrong
	default:
		return domain.StatusWrong
	}
}

// Advance moves the current marker to nextIndex. The superseded entry must
// already be terminal; skipping indexes is an inconsistency and leaves the
// scorecard untouched.
func (e *Engine) Advance(nextIndex int) error {
	if nextIndex != e.activeIndex+1 {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("advance to %d, active index is %d", nextIndex, e.activeIndex))
	}
	if nextIndex >= len(e.entries) {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("advance to %d, round has %d questions", nextIndex, len(e.entries)))
	}
	if !e.entries[e.activeIndex].Status.Terminal() {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("question %d is still %s", e.activeIndex, e.entries[e.activeIndex].Status))
	}

	e.entries[nextIndex].Status = domain.StatusCurrent
	e.activeIndex = nextIndex

	return nil
}

// Finalize freezes the scorecard after the duel finishes. A still-current
// unanswered entry stays as is; nothing mutates after this.
func (e *Engine) Finalize() {
	e.done = true
}
