package duel

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/errors"
	"github.com/mathduel/mathduel/internal/round"
	"github.com/mathduel/mathduel/internal/scorecard"
)

// Training is the single-player practice loop: the same generator and
// scorecard as a duel, but stateless with respect to the bus, and the
// session advances itself after each answer instead of waiting for a
// host decision.
type Training struct {
	clock clockwork.Clock

	questions []domain.Question
	engine    *scorecard.Engine
	startedAt time.Time
	shownAt   time.Time
	running   bool
}

func NewTraining(gen *round.Generator, clock clockwork.Clock, band domain.Band, count int) *Training {
	if gen == nil {
		gen = round.NewGenerator()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	questions := gen.Generate(band, count)

	t := &Training{
		clock:     clock,
		questions: questions,
		engine:    scorecard.NewEngine("trainee"),
		startedAt: clock.Now(),
		shownAt:   clock.Now(),
		running:   true,
	}
	t.engine.Initialize(uuid.NewString(), questions)

	return t
}

func (t *Training) Running() bool { return t.running }

// Question returns the active question.
func (t *Training) Question() (domain.Question, bool) {
	if !t.running {
		return domain.Question{}, false
	}
	return t.questions[t.engine.ActiveIndex()], true
}

// Answer records the input against the active question and self-advances.
// Reports whether the input was correct and whether the session finished.
func (t *Training) Answer(input int) (correct, done bool, err error) {
	if !t.running {
		return false, true, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("training session already finished"))
	}

	index := t.engine.ActiveIndex()
	elapsed := t.clock.Now().Sub(t.shownAt).Milliseconds()
	if err := t.engine.RecordLocalAnswer(index, input, elapsed); err != nil {
		return false, false, err
	}

	entry, _ := t.engine.Entry(index)
	correct = entry.Status == domain.StatusCorrect

	if index+1 >= len(t.questions) {
		t.running = false
		t.engine.Finalize()
		return correct, true, nil
	}

	if err := t.engine.Advance(index + 1); err != nil {
		return correct, false, err
	}
	t.shownAt = t.clock.Now()

	return correct, false, nil
}

// Elapsed is the wall time since the session started.
func (t *Training) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.startedAt)
}

func (t *Training) Scorecard() []domain.ScorecardEntry {
	return t.engine.Entries()
}

func (t *Training) Summary() scorecard.Summary {
	return scorecard.Summarize(t.engine.Entries())
}
