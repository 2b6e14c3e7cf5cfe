package duel

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mathduel/mathduel/internal/bus"
	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/errors"
	"github.com/mathduel/mathduel/internal/round"
)

// DefaultRevealDelay is how long both players look at the outcome before
// the next question is revealed.
const DefaultRevealDelay = 3 * time.Second

// duelParticipants is how many answers close a question window when
// nobody answers correctly.
const duelParticipants = 2

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingOpponent State = "awaiting-opponent"
	StateRoundActive      State = "round-active"
	StateRoundFinished    State = "round-finished"
)

// Host is the authoritative round scheduler. It runs only on the hosting
// client and is the sole writer of round-advancement decisions: it
// generates and publishes the question batch, arbitrates the answer race
// per question, and publishes outcome, reveal and finish events that both
// participants adopt.
//
// Host is not goroutine safe. All methods must be called from the owning
// client's handler loop.
type Host struct {
	bus   *bus.Bus
	clock clockwork.Clock
	gen   *round.Generator

	room        string
	playerID    string
	revealDelay time.Duration

	state       State
	round       *domain.Round
	activeIndex int
	arb         *arbiter
	reveal      *pendingReveal
}

// pendingReveal is the single scheduled advancement. At most one exists;
// aborting the round drops it so no stale timer can advance a superseded
// round.
type pendingReveal struct {
	roundID   string
	nextIndex int
	timer     clockwork.Timer
}

type HostConfig struct {
	Bus         *bus.Bus
	Clock       clockwork.Clock
	Generator   *round.Generator
	Room        string
	PlayerID    string
	RevealDelay time.Duration
}

func NewHost(c HostConfig) *Host {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Generator == nil {
		c.Generator = round.NewGenerator()
	}
	if c.RevealDelay == 0 {
		c.RevealDelay = DefaultRevealDelay
	}

	return &Host{
		bus:         c.Bus,
		clock:       c.Clock,
		gen:         c.Generator,
		room:        c.Room,
		playerID:    c.PlayerID,
		revealDelay: c.RevealDelay,
		state:       StateIdle,
	}
}

func (h *Host) State() State { return h.state }

// AwaitOpponent moves an idle host into the waiting state. The transition
// is driven by presence: the client calls this once a foreign heartbeat
// arrives.
func (h *Host) AwaitOpponent() {
	if h.state == StateIdle {
		h.state = StateAwaitingOpponent
	}
}

// StartRound generates a fresh round and publishes the full question batch
// once. Valid while no round is active; count is clamped to the band's
// unique-pair space.
func (h *Host) StartRound(ctx context.Context, band domain.Band, count int) (*domain.Round, error) {
	if h.state == StateRoundActive {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("round %s is still active", h.round.RoundID))
	}

	r := h.gen.NewRound(band, count)

	if err := h.bus.Publish(ctx, h.room, domain.EventNameScorecard, scorecardEvent(r)); err != nil {
		return nil, err
	}

	h.state = StateRoundActive
	h.round = r
	h.activeIndex = 0
	h.arb = newArbiter(r.RoundID, r.Questions[0], duelParticipants)
	h.dropReveal()

	slog.InfoContext(ctx, "duel: round started",
		"room", h.room, "round", r.RoundID, "band", band, "questions", r.QuestionCount)

	return r, nil
}

// HandleResult feeds one answer event into the active question's arbiter
// and publishes the outcome as soon as the race resolves. Events for
// superseded rounds are dropped by value comparison; events for a question
// other than the active one are logged and dropped.
func (h *Host) HandleResult(ctx context.Context, ev domain.EventResult) error {
	if h.state != StateRoundActive || h.round == nil || ev.RoundID != h.round.RoundID {
		return nil
	}

	if ev.QuestionIndex != h.activeIndex {
		slog.WarnContext(ctx, "duel: drop result for inactive question",
			"round", ev.RoundID, "question", ev.QuestionIndex, "active", h.activeIndex)
		return nil
	}

	outcome, resolved := h.arb.observe(ev)
	if !resolved {
		return nil
	}

	// The arbiter is already resolved, so the round must keep moving even
	// when the outcome never reaches the channel.
	if err := h.bus.Publish(ctx, h.room, domain.EventNameWinner, outcome); err != nil {
		slog.ErrorContext(ctx, "duel: publish winner failed",
			"round", ev.RoundID, "question", ev.QuestionIndex, "error", err)
	}

	h.scheduleReveal(ctx)
	return nil
}

// scheduleReveal publishes the gated reveal of the next question and arms
// the single advancement timer, or arms the finish timer when the round is
// out of questions. The delay lets both players see the outcome.
func (h *Host) scheduleReveal(ctx context.Context) {
	next := h.activeIndex + 1
	revealAt := h.clock.Now().Add(h.revealDelay)

	if next < h.round.QuestionCount {
		ev := domain.EventNextQuestion{QuestionIndex: next, RevealAt: revealAt}
		if err := h.bus.Publish(ctx, h.room, domain.EventNameNextQuestion, ev); err != nil {
			slog.ErrorContext(ctx, "duel: publish nextQuestion failed", "error", err)
		}
	}

	h.reveal = &pendingReveal{
		roundID:   h.round.RoundID,
		nextIndex: next,
		timer:     h.clock.NewTimer(h.revealDelay),
	}
}

// RevealC is the pending advancement timer, nil when nothing is scheduled.
// The owning loop selects on it and calls HandleRevealElapsed when it
// fires.
func (h *Host) RevealC() <-chan time.Time {
	if h.reveal == nil {
		return nil
	}
	return h.reveal.timer.Chan()
}

// HandleRevealElapsed advances the host to the next question, or finishes
// the round when none is left.
func (h *Host) HandleRevealElapsed(ctx context.Context) error {
	if h.reveal == nil || h.round == nil || h.reveal.roundID != h.round.RoundID {
		h.reveal = nil
		return nil
	}

	next := h.reveal.nextIndex
	h.reveal = nil

	if next >= h.round.QuestionCount {
		h.state = StateRoundFinished
		slog.InfoContext(ctx, "duel: round finished", "room", h.room, "round", h.round.RoundID)
		return h.bus.Publish(ctx, h.room, domain.EventNameDuelFinished,
			domain.EventDuelFinished{RoundID: h.round.RoundID})
	}

	h.activeIndex = next
	h.arb = newArbiter(h.round.RoundID, h.round.Questions[next], duelParticipants)
	return nil
}

// Abort cancels the active round. The pending reveal is dropped so it can
// never advance a superseded round; in-flight answers for the old round ID
// are ignored by HandleResult's value comparison.
func (h *Host) Abort() {
	h.dropReveal()
	h.round = nil
	h.arb = nil
	h.state = StateIdle
}

func (h *Host) dropReveal() {
	if h.reveal != nil {
		h.reveal.timer.Stop()
		h.reveal = nil
	}
}

func scorecardEvent(r *domain.Round) domain.EventScorecard {
	ev := domain.EventScorecard{
		Mode:         r.Band,
		MaxQuestions: r.QuestionCount,
		RoundID:      r.RoundID,
	}

	for i, q := range r.Questions {
		st := domain.StatusPending
		if i == 0 {
			st = domain.StatusCurrent
		}
		ev.Questions = append(ev.Questions, domain.QuestionPayload{A: q.A, B: q.B})
		ev.Scorecard = append(ev.Scorecard, domain.ScorecardEntryPayload{
			A:             q.A,
			B:             q.B,
			Status:        st,
			RoundID:       r.RoundID,
			QuestionIndex: i,
		})
	}

	return ev
}
