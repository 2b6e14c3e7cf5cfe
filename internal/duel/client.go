package duel

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mathduel/mathduel/internal/bus"
	"github.com/mathduel/mathduel/internal/countdown"
	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/presence"
	"github.com/mathduel/mathduel/internal/scorecard"
)

// Client is one duel participant. It runs on host and guest alike; the
// host additionally owns a Host controller driven from the same loop.
//
// All state mutation happens on the Run loop, one inbound event at a time,
// so scorecard updates within one handler are atomic with respect to every
// other handler on this client.
type Client struct {
	bus      *bus.Bus
	clock    clockwork.Clock
	room     string
	playerID string
	name     string

	host       *Host
	tracker    *presence.Tracker
	hbInterval time.Duration

	mu     sync.Mutex
	engine *scorecard.Engine
	chat   []domain.EventMessage

	cmds chan command

	// pending reveal countdown, at most one, keyed to reject stale
	// completions after a round restart.
	cd      *countdown.Countdown
	cdRound string
	cdIndex int

	shownAt        time.Time
	opponentJoined bool
}

type ClientConfig struct {
	Bus               *bus.Bus
	Clock             clockwork.Clock
	Room              string
	PlayerID          string
	DisplayName       string
	Host              *Host // nil on guests
	Presence          *presence.Tracker
	HeartbeatInterval time.Duration
}

func NewClient(c ClientConfig) *Client {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = presence.DefaultHeartbeatInterval
	}
	if c.Presence == nil {
		c.Presence = presence.NewTracker(presence.Config{Clock: c.Clock})
	}

	return &Client{
		bus:        c.Bus,
		clock:      c.Clock,
		room:       c.Room,
		playerID:   c.PlayerID,
		name:       c.DisplayName,
		host:       c.Host,
		tracker:    c.Presence,
		hbInterval: c.HeartbeatInterval,
		engine:     scorecard.NewEngine(c.PlayerID),
		cmds:       make(chan command, 16),
	}
}

// chatHistoryLimit bounds the in-memory chat log. Oldest lines fall out
// first.
const chatHistoryLimit = 100

type command struct {
	submit *int
	start  *startCommand
	chat   *string
	abort  bool
}

type startCommand struct {
	band  domain.Band
	count int
}

// Submit queues the local answer for the active question. UI gating allows
// at most one submission per question; a duplicate is rejected by the
// engine on the loop.
func (c *Client) Submit(answer int) {
	c.cmds <- command{submit: &answer}
}

// StartDuel queues a round start. Only meaningful on the hosting client.
func (c *Client) StartDuel(band domain.Band, count int) {
	c.cmds <- command{start: &startCommand{band: band, count: count}}
}

// Abort queues a round abort on the hosting client.
func (c *Client) Abort() {
	c.cmds <- command{abort: true}
}

// SendChat queues a chat line for the room. Blank lines and clients with
// no display name are dropped on the loop, not here.
func (c *Client) SendChat(text string) {
	c.cmds <- command{chat: &text}
}

// Chat returns a copy of the chat history, oldest first.
func (c *Client) Chat() []domain.EventMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.EventMessage, len(c.chat))
	copy(out, c.chat)
	return out
}

// Scorecard returns this client's current view of the round.
func (c *Client) Scorecard() []domain.ScorecardEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Entries()
}

func (c *Client) ActiveIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.ActiveIndex()
}

func (c *Client) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Finished()
}

// Summary tallies the final scorecard.
func (c *Client) Summary() scorecard.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return scorecard.Summarize(c.engine.Entries())
}

func (c *Client) Presence() *presence.Tracker { return c.tracker }

// Run subscribes to the room channel and drains every event source from a
// single loop until ctx ends. A heartbeat goes out immediately on join,
// then every interval.
func (c *Client) Run(ctx context.Context) error {
	sub := c.bus.Subscribe(ctx, c.room)
	defer sub.Close()

	hb := c.clock.NewTicker(c.hbInterval)
	defer hb.Stop()

	c.publishHeartbeat(ctx)

	for {
		var revealC <-chan time.Time
		if c.host != nil {
			revealC = c.host.RevealC()
		}

		var cdDone <-chan struct{}
		if c.cd != nil {
			cdDone = c.cd.Done()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			c.handleMessage(ctx, msg)

		case cmd := <-c.cmds:
			c.handleCommand(ctx, cmd)

		case <-hb.Chan():
			c.publishHeartbeat(ctx)

		case <-revealC:
			if err := c.host.HandleRevealElapsed(ctx); err != nil {
				slog.ErrorContext(ctx, "duel: reveal handling failed", "error", err)
			}

		case <-cdDone:
			c.handleCountdownElapsed(ctx)
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, msg bus.Message) {
	ev, err := bus.DecodeEvent(msg)
	if err != nil {
		slog.ErrorContext(ctx, "duel: drop undecodable event",
			"event", msg.Event, "error", err)
		return
	}

	switch ev := ev.(type) {
	case domain.EventScorecard:
		c.handleScorecard(ctx, ev)
	case domain.EventWinner:
		c.handleWinner(ctx, ev)
	case domain.EventNextQuestion:
		c.handleNextQuestion(ctx, ev)
	case domain.EventDuelFinished:
		c.handleDuelFinished(ctx, ev)
	case domain.EventResult:
		if c.host != nil {
			if err := c.host.HandleResult(ctx, ev); err != nil {
				slog.ErrorContext(ctx, "duel: host result handling failed", "error", err)
			}
		}
	case domain.EventHeartbeat:
		c.handleHeartbeat(ev)
	case domain.EventMessage:
		c.handleChat(ev)
	case domain.EventQuestion:
		// Ad hoc single-question events belong to the HTTP variant, the
		// duel loop plays full batches only.
	}
}

func (c *Client) handleCommand(ctx context.Context, cmd command) {
	switch {
	case cmd.submit != nil:
		c.handleSubmit(ctx, *cmd.submit)
	case cmd.chat != nil:
		c.handleSendChat(ctx, *cmd.chat)
	case cmd.start != nil:
		if c.host == nil {
			slog.WarnContext(ctx, "duel: guest cannot start a round", "room", c.room)
			return
		}
		if _, err := c.host.StartRound(ctx, cmd.start.band, cmd.start.count); err != nil {
			slog.ErrorContext(ctx, "duel: start round failed", "error", err)
		}
	case cmd.abort:
		if c.host != nil {
			c.host.Abort()
		}
		c.dropCountdown()
	}
}

// handleScorecard initializes the local scorecard from the host's batch.
// Host and guest run exactly this code, so both start from identical
// state.
func (c *Client) handleScorecard(ctx context.Context, ev domain.EventScorecard) {
	questions := make([]domain.Question, len(ev.Questions))
	for i, q := range ev.Questions {
		questions[i] = domain.Question{Index: i, A: q.A, B: q.B}
	}

	c.dropCountdown()

	c.mu.Lock()
	c.engine.Initialize(ev.RoundID, questions)
	c.mu.Unlock()

	c.shownAt = c.clock.Now()

	slog.InfoContext(ctx, "duel: round received",
		"room", c.room, "round", ev.RoundID, "questions", len(questions))
}

func (c *Client) handleWinner(ctx context.Context, ev domain.EventWinner) {
	c.mu.Lock()
	err := c.engine.ApplyOutcome(ev)
	c.mu.Unlock()

	if err != nil {
		slog.WarnContext(ctx, "duel: drop unplaceable outcome",
			"round", ev.RoundID, "question", ev.QuestionIndex, "error", err)
	}
}

// handleNextQuestion gates the reveal behind a countdown toward the
// host-published absolute timestamp. A countdown for a superseded round or
// question is replaced; at most one runs.
func (c *Client) handleNextQuestion(ctx context.Context, ev domain.EventNextQuestion) {
	c.mu.Lock()
	roundID := c.engine.RoundID()
	c.mu.Unlock()

	if roundID == "" {
		slog.WarnContext(ctx, "duel: drop reveal with no active round", "question", ev.QuestionIndex)
		return
	}

	c.dropCountdown()
	c.cd = countdown.Start(ctx, c.clock, ev.RevealAt)
	c.cdRound = roundID
	c.cdIndex = ev.QuestionIndex
}

func (c *Client) handleCountdownElapsed(ctx context.Context) {
	next := c.cdIndex
	cdRound := c.cdRound
	c.cd = nil

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.RoundID() != cdRound {
		return
	}

	if err := c.engine.Advance(next); err != nil {
		slog.WarnContext(ctx, "duel: drop inconsistent advance",
			"round", cdRound, "question", next, "error", err)
		return
	}

	c.shownAt = c.clock.Now()
}

func (c *Client) handleDuelFinished(ctx context.Context, ev domain.EventDuelFinished) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.RoundID() != ev.RoundID {
		return
	}

	c.engine.Finalize()
	c.dropCountdown()

	slog.InfoContext(ctx, "duel: finished", "room", c.room, "round", ev.RoundID)
}

// handleChat appends a received chat line, including our own echoed back
// from the channel. The sender never appends locally, so everyone sees
// the same ordering.
func (c *Client) handleChat(ev domain.EventMessage) {
	if ev.Text == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.chat = append(c.chat, ev)
	if len(c.chat) > chatHistoryLimit {
		c.chat = c.chat[len(c.chat)-chatHistoryLimit:]
	}
}

func (c *Client) handleSendChat(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(c.name) == "" {
		return
	}

	ev := domain.EventMessage{Text: text, DisplayName: c.name}
	if err := c.bus.Publish(ctx, c.room, domain.EventNameMessage, ev); err != nil {
		slog.ErrorContext(ctx, "duel: publish chat failed", "error", err)
	}
}

func (c *Client) handleHeartbeat(ev domain.EventHeartbeat) {
	c.tracker.Observe(ev)

	if c.host != nil && ev.PlayerID != c.playerID && !c.opponentJoined {
		c.opponentJoined = true
		c.host.AwaitOpponent()
	}
}

// handleSubmit records the local answer and publishes the result event.
// Publishing is best effort: on delivery failure the local state stands
// and the host simply never sees this answer.
func (c *Client) handleSubmit(ctx context.Context, answer int) {
	elapsed := c.clock.Now().Sub(c.shownAt).Milliseconds()

	c.mu.Lock()
	index := c.engine.ActiveIndex()
	entry, ok := c.engine.Entry(index)
	roundID := c.engine.RoundID()
	var err error
	if ok {
		err = c.engine.RecordLocalAnswer(index, answer, elapsed)
	}
	c.mu.Unlock()

	if !ok || err != nil {
		slog.WarnContext(ctx, "duel: drop local answer", "question", index, "error", err)
		return
	}

	ev := domain.EventResult{
		Room:          c.room,
		RoundID:       roundID,
		PlayerID:      c.playerID,
		QuestionIndex: index,
		Correct:       Correct(answer, entry.A, entry.B),
		Answer:        answer,
		A:             entry.A,
		B:             entry.B,
		TimeMs:        elapsed,
		TS:            c.clock.Now(),
	}

	if err := c.bus.Publish(ctx, c.room, domain.EventNameResult, ev); err != nil {
		slog.ErrorContext(ctx, "duel: publish result failed", "error", err)
	}
}

func (c *Client) publishHeartbeat(ctx context.Context) {
	ev := domain.EventHeartbeat{
		PlayerID:    c.playerID,
		DisplayName: c.name,
		TS:          c.clock.Now(),
	}

	// Heartbeats self-heal through periodic republish, a failed one is
	// only logged.
	if err := c.bus.Publish(ctx, c.room, domain.EventNameHeartbeat, ev); err != nil {
		slog.ErrorContext(ctx, "duel: publish heartbeat failed", "error", err)
	}
}

func (c *Client) dropCountdown() {
	if c.cd != nil {
		c.cd.Cancel()
		c.cd = nil
	}
}
