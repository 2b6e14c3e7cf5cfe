package domain

import (
	"time"
)

// Band selects the operand range for a round.
type Band string

const (
	BandSmall Band = "small" // 2..10
	BandBig   Band = "big"   // 10..20
	BandMixed Band = "mixed" // 2..20
)

// Range returns the inclusive operand range for the band.
// Unknown bands fall back to small.
func (b Band) Range() (min, max int) {
	switch b {
	case BandBig:
		return 10, 20
	case BandMixed:
		return 2, 20
	default:
		return 2, 10
	}
}

// PoolSize is the number of unique (a,b) pairs the band can produce.
// Commutative pairs count as distinct.
func (b Band) PoolSize() int {
	min, max := b.Range()
	n := max - min + 1
	return n * n
}

// Question is one operand pair within a round. Immutable once generated.
type Question struct {
	Index int
	A     int
	B     int
}

// Answer returns the product the players are asked for.
func (q Question) Answer() int { return q.A * q.B }

// Round is one complete sequence of questions played under one round ID.
// A round is superseded by the next round, never mutated.
type Round struct {
	RoundID       string
	Band          Band
	QuestionCount int
	Questions     []Question
	StartedAt     time.Time
}

// Status is the per-question state of a scorecard entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCurrent   Status = "current"
	StatusCorrect   Status = "correct"
	StatusWrong     Status = "wrong"
	StatusFastest   Status = "fastest"
	StatusSlower    Status = "slower"
	StatusBothWrong Status = "bothWrong"
)

// Terminal reports whether the status can no longer change for the question.
func (s Status) Terminal() bool {
	switch s {
	case StatusCorrect, StatusWrong, StatusFastest, StatusSlower, StatusBothWrong:
		return true
	}
	return false
}

// AnsweredCorrectly reports whether the entry counts as a correct answer
// in the final tally. A slower answer was still correct.
func (s Status) AnsweredCorrectly() bool {
	return s == StatusCorrect || s == StatusFastest || s == StatusSlower
}

// ScorecardEntry is the per-question outcome record held by each client.
type ScorecardEntry struct {
	Index     int
	A         int
	B         int
	Status    Status
	Input     *int
	ElapsedMs int64
}

// Participant is a player known through heartbeats. Never explicitly
// destroyed; staleness is derived from LastHeartbeatAt.
type Participant struct {
	PlayerID        string
	DisplayName     string
	LastHeartbeatAt time.Time
}
