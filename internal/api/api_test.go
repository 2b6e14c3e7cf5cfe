package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathduel/mathduel/internal/api"
	"github.com/mathduel/mathduel/internal/bus"
	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/event"
	"github.com/mathduel/mathduel/internal/round"
	"github.com/mathduel/mathduel/internal/token"
)

type fixture struct {
	router *gin.Engine
	bus    *bus.Bus
	redis  redis.UniversalClient
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	t.Cleanup(func() { _ = rc.Close() })

	b := bus.New(bus.Config{Redis: rc, Prefix: "test"})

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(api.MethodNotAllowed)

	api.New(api.Config{
		Router:    r,
		EventBus:  eb,
		Bus:       b,
		Generator: round.NewSeededGenerator(7),
		Token:     token.NewService(token.Config{Key: "test-key"}),
	})

	return &fixture{router: r, bus: b, redis: rc}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func awaitEvent(t *testing.T, sub *bus.Subscription, name string) bus.Message {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-sub.C():
			require.True(t, ok, "subscription closed while waiting for %s", name)
			if msg.Event == name {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s event within deadline", name)
		}
	}
}

// awaitResult skips events until the named player's result arrives;
// result and winner publication are decoupled, so their order is not
// fixed.
func awaitResult(t *testing.T, sub *bus.Subscription, player string) domain.EventResult {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-sub.C():
			require.True(t, ok, "subscription closed while waiting for result")
			if msg.Event != domain.EventNameResult {
				continue
			}
			var res domain.EventResult
			require.NoError(t, bus.Decode(msg, &res))
			if res.PlayerID == player {
				return res
			}
		case <-deadline:
			t.Fatalf("no result from %s within deadline", player)
		}
	}
}

func TestPing(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/ping", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "GET", body["method"])
	assert.NotEmpty(t, body["now"])
}

func TestMethodNotAllowed(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodDelete, "/api/ping", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "method_not_allowed", decodeBody(t, w)["error"])
}

func TestCreateRoom(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)

	room, _ := decodeBody(t, w)["room"].(string)
	require.Len(t, room, 6)
	for _, r := range room {
		assert.Contains(t, "0123456789abcdefghijklmnopqrstuvwxyz", string(r))
	}
}

func TestNewRound(t *testing.T) {
	tests := map[string]struct {
		method string
		target string
		body   string
		code   int
	}{
		"missing room": {
			method: http.MethodGet,
			target: "/api/new-round",
			code:   http.StatusBadRequest,
		},
		"room from query": {
			method: http.MethodGet,
			target: "/api/new-round?room=ab12cd",
			code:   http.StatusOK,
		},
		"room from body": {
			method: http.MethodPost,
			target: "/api/new-round",
			body:   `{"room":"ab12cd"}`,
			code:   http.StatusOK,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := setup(t)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sub := f.bus.Subscribe(ctx, "ab12cd")
			defer sub.Close()

			w := f.do(tt.method, tt.target, tt.body)
			require.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				return
			}

			body := decodeBody(t, w)
			assert.NotEmpty(t, body["roundId"])

			// The response promises a question already on the channel.
			var ev domain.EventQuestion
			require.NoError(t, bus.Decode(awaitEvent(t, sub, domain.EventNameQuestion), &ev))
			assert.Equal(t, body["roundId"], ev.RoundID)
			assert.Equal(t, body["a"], float64(ev.A))
			assert.Equal(t, body["b"], float64(ev.B))
			assert.GreaterOrEqual(t, ev.A, 2)
			assert.LessOrEqual(t, ev.A, 20)
		})
	}
}

func TestNewRound_PublishFailure(t *testing.T) {
	f := setup(t)

	// The response must not promise a round that never reached the
	// channel, so a dead transport turns into a 500.
	require.NoError(t, f.redis.Close())

	w := f.do(http.MethodGet, "/api/new-round?room=ab12cd", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "publish_failed", decodeBody(t, w)["error"])
}

func TestAnswer_Validation(t *testing.T) {
	tests := map[string]struct {
		body string
		code int
		err  string
	}{
		"not json": {
			body: "not json",
			code: http.StatusBadRequest,
			err:  "bad_request",
		},
		"missing answer": {
			body: `{"room":"r1","roundId":"x","playerId":"p1"}`,
			code: http.StatusBadRequest,
			err:  "bad_request",
		},
		"missing player": {
			body: `{"room":"r1","roundId":"x","answer":42}`,
			code: http.StatusBadRequest,
			err:  "bad_request",
		},
		"unknown round": {
			body: `{"room":"r1","roundId":"nope","playerId":"p1","answer":42}`,
			code: http.StatusNotFound,
			err:  "round_not_found",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := setup(t)

			w := f.do(http.MethodPost, "/api/answer", tt.body)
			require.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.err, decodeBody(t, w)["error"])
		})
	}
}

func TestAnswer_WinnerIdempotent(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := f.bus.Subscribe(ctx, "r1")
	defer sub.Close()

	w := f.do(http.MethodGet, "/api/new-round?room=r1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var q domain.EventQuestion
	require.NoError(t, bus.Decode(awaitEvent(t, sub, domain.EventNameQuestion), &q))

	answer := func(player string, value int) {
		body, _ := json.Marshal(map[string]any{
			"room":     "r1",
			"roundId":  q.RoundID,
			"playerId": player,
			"answer":   value,
			"timeMs":   900,
		})
		w := f.do(http.MethodPost, "/api/answer", string(body))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "accepted", decodeBody(t, w)["status"])
	}

	// A wrong answer produces a result but never a winner.
	answer("p1", q.A*q.B+1)

	var res domain.EventResult
	require.NoError(t, bus.Decode(awaitEvent(t, sub, domain.EventNameResult), &res))
	assert.Equal(t, "p1", res.PlayerID)
	assert.False(t, res.Correct)

	// The first correct answer wins.
	answer("p2", q.A*q.B)

	var win domain.EventWinner
	require.NoError(t, bus.Decode(awaitEvent(t, sub, domain.EventNameWinner), &win))
	assert.Equal(t, "p2", win.PlayerID)
	assert.True(t, win.Correct)
	assert.Equal(t, q.RoundID, win.RoundID)

	// A later correct answer is accepted but decides nothing.
	answer("p3", q.A*q.B)

	res = awaitResult(t, sub, "p3")
	assert.True(t, res.Correct)

	select {
	case msg := <-sub.C():
		assert.NotEqual(t, domain.EventNameWinner, msg.Event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestToken(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/token?room=r1&clientId=c1", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "c1", body["clientId"])
	assert.Equal(t, "r1", body["room"])
	assert.NotEmpty(t, body["expiresAt"])
}

func TestToken_AnonymousClient(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/token", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anon", decodeBody(t, w)["clientId"])
}
