package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/duel"
)

// NewRound generates a single ad hoc question round server-side and
// publishes it to the room channel. GET takes the room from the query,
// POST from the body.
func (a *API) NewRound(c *gin.Context) {
	room := c.Query("room")
	if c.Request.Method == http.MethodPost {
		var body struct {
			Room string `json:"room"`
		}
		if err := c.ShouldBindJSON(&body); err == nil && body.Room != "" {
			room = body.Room
		}
	}
	if room == "" {
		respondError(c, http.StatusBadRequest, "bad_request")
		return
	}

	q := a.gen.Generate(domain.BandMixed, 1)[0]
	ev := domain.EventQuestion{
		RoundID: uuid.NewString(),
		A:       q.A,
		B:       q.B,
		TS:      time.Now().UTC(),
	}

	// The round must be on the channel before the response promises it.
	if err := a.bus.Publish(c.Request.Context(), room, domain.EventNameQuestion, ev); err != nil {
		respondError(c, http.StatusInternalServerError, "publish_failed")
		return
	}

	a.rounds.put(room, ev)

	c.JSON(http.StatusOK, gin.H{
		"roundId": ev.RoundID,
		"a":       ev.A,
		"b":       ev.B,
	})
}

type answerRequest struct {
	Room          string `json:"room"`
	RoundID       string `json:"roundId"`
	PlayerID      string `json:"playerId"`
	QuestionIndex int    `json:"questionIndex"`
	// Answer is a pointer so "missing" and "zero" stay distinguishable,
	// and a non-numeric value fails decoding instead of passing as zero.
	Answer *int  `json:"answer"`
	TimeMs int64 `json:"timeMs"`
}

// Answer evaluates one submission against the last published question for
// the round and publishes the result, plus an idempotent winner event for
// the first correct answer. Wrong answers are accepted without an outcome.
func (a *API) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request")
		return
	}
	if req.Room == "" || req.RoundID == "" || req.PlayerID == "" || req.Answer == nil {
		respondError(c, http.StatusBadRequest, "bad_request")
		return
	}

	q, ok := a.rounds.get(req.Room, req.RoundID)
	if !ok {
		respondError(c, http.StatusNotFound, "round_not_found")
		return
	}

	now := time.Now().UTC()
	timeMs := req.TimeMs
	if timeMs == 0 {
		timeMs = now.Sub(q.TS).Milliseconds()
	}

	correct := duel.Correct(*req.Answer, q.A, q.B)

	a.eb.Publish(c.Request.Context(), domain.EventAnswerAccepted{
		Room: req.Room,
		Result: domain.EventResult{
			Room:          req.Room,
			RoundID:       req.RoundID,
			PlayerID:      req.PlayerID,
			QuestionIndex: req.QuestionIndex,
			Correct:       correct,
			Answer:        *req.Answer,
			A:             q.A,
			B:             q.B,
			TimeMs:        timeMs,
			TS:            now,
		},
	})

	// First correct answer wins; the store resolves exactly once per
	// round, so a raced duplicate cannot produce a second winner.
	if correct && a.rounds.resolve(req.Room, req.RoundID) {
		a.eb.Publish(c.Request.Context(), domain.EventWinnerDecided{
			Room: req.Room,
			Winner: domain.EventWinner{
				RoundID:       req.RoundID,
				PlayerID:      req.PlayerID,
				Answer:        *req.Answer,
				TimeMs:        timeMs,
				QuestionIndex: req.QuestionIndex,
				Correct:       true,
				A:             q.A,
				B:             q.B,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
