package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mathduel/mathduel/internal/bus"
	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/errors"
	"github.com/mathduel/mathduel/internal/event"
	"github.com/mathduel/mathduel/internal/round"
	"github.com/mathduel/mathduel/internal/token"
)

// roomAlphabet matches the lowercase short room links players share.
const (
	roomAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	roomIDLength = 6
)

type Config struct {
	Router    *gin.Engine
	EventBus  *event.Bus
	Bus       *bus.Bus
	Generator *round.Generator
	Token     *token.Service
}

// API is the stateless request/response deployment variant: round
// generation and answer evaluation run server-side but publish the exact
// same room-channel events as a hosting client would.
type API struct {
	eb     *event.Bus
	bus    *bus.Bus
	gen    *round.Generator
	token  *token.Service
	rounds *roundStore
}

func New(c Config) *API {
	a := &API{
		eb:     c.EventBus,
		bus:    c.Bus,
		gen:    c.Generator,
		token:  c.Token,
		rounds: newRoundStore(defaultStoreLimit),
	}

	if a.gen == nil {
		a.gen = round.NewGenerator()
	}

	r := c.Router
	r.GET("/api/ping", a.Ping)
	r.POST("/api/rooms", a.CreateRoom)
	r.GET("/api/new-round", a.NewRound)
	r.POST("/api/new-round", a.NewRound)
	r.POST("/api/answer", a.Answer)
	r.GET("/api/token", a.Token)

	// Answer-side publication is decoupled through the in-process bus;
	// the response never waits for the room channel.
	c.EventBus.Subscribe(domain.EventNameAnswerAccepted, func(ctx context.Context, e event.Event) error {
		return a.publishResult(ctx, e.(domain.EventAnswerAccepted))
	})
	c.EventBus.Subscribe(domain.EventNameWinnerDecided, func(ctx context.Context, e event.Event) error {
		return a.publishWinner(ctx, e.(domain.EventWinnerDecided))
	})

	return a
}

func (a *API) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"method": c.Request.Method,
		"now":    nowISO(),
	})
}

// CreateRoom mints a short shareable room identifier.
func (a *API) CreateRoom(c *gin.Context) {
	id, err := gonanoid.Generate(roomAlphabet, roomIDLength)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal")
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": id})
}

// Token hands out the short-lived channel credential. Failures surface as
// a connection-failed status to the client, never retried here.
func (a *API) Token(c *gin.Context) {
	cred, err := a.token.Issue(c.Query("room"), c.Query("clientId"))
	if err != nil {
		e := errors.Convert(err)
		respondError(c, e.HTTPStatusCode(), "token_failed")
		return
	}

	c.JSON(http.StatusOK, cred)
}

func respondError(c *gin.Context, status int, code string) {
	c.JSON(status, gin.H{"error": code})
}

// MethodNotAllowed is the engine-level 405 handler.
func MethodNotAllowed(c *gin.Context) {
	respondError(c, http.StatusMethodNotAllowed, "method_not_allowed")
}
