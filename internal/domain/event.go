package domain

import "time"

// Wire event names shared by every deployment variant. Each name has
// exactly one payload type below; unknown names or unknown fields are
// rejected at the decoding boundary.
const (
	EventNameQuestion     = "question"
	EventNameScorecard    = "scorecard"
	EventNameResult       = "result"
	EventNameWinner       = "winner"
	EventNameNextQuestion = "nextQuestion"
	EventNameDuelFinished = "duelFinished"
	EventNameHeartbeat    = "heartbeat"
	EventNameMessage      = "message"
)

// EventQuestion announces a single ad hoc question, published by the
// HTTP round endpoint.
type EventQuestion struct {
	RoundID string    `json:"roundId"`
	A       int       `json:"a"`
	B       int       `json:"b"`
	TS      time.Time `json:"ts"`
}

func (EventQuestion) Name() string { return EventNameQuestion }

// EventScorecard carries the full question batch for a new round. Both
// participants initialize their local scorecards from it, so host and
// guest start from identical state.
type EventScorecard struct {
	Scorecard    []ScorecardEntryPayload `json:"scorecard"`
	Mode         Band                    `json:"mode"`
	MaxQuestions int                     `json:"maxQuestions"`
	RoundID      string                  `json:"roundId"`
	Questions    []QuestionPayload       `json:"questions"`
	RevealAt     *time.Time              `json:"revealAt,omitempty"`
}

func (EventScorecard) Name() string { return EventNameScorecard }

type QuestionPayload struct {
	A int `json:"a"`
	B int `json:"b"`
}

type ScorecardEntryPayload struct {
	A             int    `json:"a"`
	B             int    `json:"b"`
	Status        Status `json:"status"`
	RoundID       string `json:"roundId"`
	QuestionIndex int    `json:"questionIndex"`
}

// EventResult is one player's answer to the active question. Published at
// most once per player per question; duplicate delivery must be tolerated.
type EventResult struct {
	Room          string    `json:"room"`
	RoundID       string    `json:"roundId"`
	PlayerID      string    `json:"playerId"`
	QuestionIndex int       `json:"questionIndex"`
	Correct       bool      `json:"correct"`
	Answer        int       `json:"answer"`
	A             int       `json:"a"`
	B             int       `json:"b"`
	TimeMs        int64     `json:"timeMs"`
	TS            time.Time `json:"ts"`
}

func (EventResult) Name() string { return EventNameResult }

// EventWinner is the host's authoritative resolution of a question.
// PlayerID is the winning player, empty when nobody won. OtherCorrect
// and OtherWrong report what the host knows about the non-winning
// participant at resolution time.
type EventWinner struct {
	RoundID       string `json:"roundId"`
	PlayerID      string `json:"playerId"`
	Answer        int    `json:"answer"`
	TimeMs        int64  `json:"timeMs"`
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	OtherCorrect  bool   `json:"player2Correct"`
	OtherWrong    bool   `json:"player2Wrong"`
	BothWrong     bool   `json:"bothWrong"`
	A             int    `json:"a"`
	B             int    `json:"b"`
}

func (EventWinner) Name() string { return EventNameWinner }

// EventNextQuestion gates the reveal of the next question behind an
// absolute timestamp, so both participants uncover it together.
type EventNextQuestion struct {
	QuestionIndex int       `json:"questionIndex"`
	RevealAt      time.Time `json:"revealAt"`
}

func (EventNextQuestion) Name() string { return EventNameNextQuestion }

type EventDuelFinished struct {
	RoundID string `json:"roundId"`
}

func (EventDuelFinished) Name() string { return EventNameDuelFinished }

// EventHeartbeat is the periodic liveness broadcast. Best effort,
// self-healing through republish.
type EventHeartbeat struct {
	PlayerID    string    `json:"playerId"`
	DisplayName string    `json:"name"`
	TS          time.Time `json:"ts"`
}

func (EventHeartbeat) Name() string { return EventNameHeartbeat }

// EventMessage is one chat line on the room channel. Senders are
// identified by display name only; the payload carries nothing else so
// existing clients stay wire-compatible.
type EventMessage struct {
	Text        string `json:"text"`
	DisplayName string `json:"name"`
}

func (EventMessage) Name() string { return EventNameMessage }

// In-process events, dispatched on the server's internal bus to decouple
// HTTP handlers from room-channel publication.
const (
	EventNameRoundCreated   = "round.created"
	EventNameAnswerAccepted = "answer.accepted"
	EventNameWinnerDecided  = "winner.decided"
)

type EventRoundCreated struct {
	Room     string
	Question EventQuestion
}

func (EventRoundCreated) Name() string { return EventNameRoundCreated }

type EventAnswerAccepted struct {
	Room   string
	Result EventResult
}

func (EventAnswerAccepted) Name() string { return EventNameAnswerAccepted }

type EventWinnerDecided struct {
	Room   string
	Winner EventWinner
}

func (EventWinnerDecided) Name() string { return EventNameWinnerDecided }
