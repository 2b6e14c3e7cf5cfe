package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/errors"
)

// Bus is the room-scoped publish/subscribe channel over redis. Delivery is
// at least once: subscribers may see duplicates, so every handler must be
// idempotent. Per-channel publish order is preserved for one subscriber.
type Bus struct {
	redis  redis.UniversalClient
	prefix string
}

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
}

func New(c Config) *Bus {
	return &Bus{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

// Message is one decoded bus delivery.
type Message struct {
	Event string
	Data  json.RawMessage
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomChannel returns the redis channel for a room.
func (b *Bus) RoomChannel(room string) string {
	return fmt.Sprintf("%s:room:%s", b.prefix, room)
}

// Publish sends one named event to the room channel. Failures come back as
// delivery errors; game-state events are never retried automatically.
func (b *Bus) Publish(ctx context.Context, room, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Internal(fmt.Errorf("bus: marshal %s: %w", event, err))
	}

	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return errors.Internal(fmt.Errorf("bus: marshal envelope: %w", err))
	}

	if err := b.redis.Publish(ctx, b.RoomChannel(room), msg).Err(); err != nil {
		publishFailures.WithLabelValues(event).Inc()
		return errors.Delivery(fmt.Errorf("bus: publish %s: %w", event, err))
	}

	published.WithLabelValues(event).Inc()
	return nil
}

// Subscribe opens the room channel and returns a stream of decoded
// messages. The stream ends when ctx is canceled or Close is called on
// the returned subscription. Malformed envelopes are logged and dropped.
func (b *Bus) Subscribe(ctx context.Context, room string) *Subscription {
	pubsub := b.redis.Subscribe(ctx, b.RoomChannel(room))

	// Wait for the subscription confirmation so no publish issued after
	// this call returns can slip past the subscriber.
	if _, err := pubsub.Receive(ctx); err != nil {
		slog.ErrorContext(ctx, "bus: subscribe confirmation failed", "room", room, "error", err)
	}

	s := &Subscription{
		pubsub: pubsub,
		ch:     make(chan Message, 64),
	}

	go s.run(ctx)

	return s
}

type Subscription struct {
	pubsub *redis.PubSub
	ch     chan Message
}

// C is the message stream. Closed after the subscription ends.
func (s *Subscription) C() <-chan Message { return s.ch }

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.ch)

	for msg := range s.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			decodeFailures.WithLabelValues("envelope").Inc()
			slog.ErrorContext(ctx, "bus: drop malformed envelope", "error", err)
			continue
		}

		received.WithLabelValues(env.Event).Inc()

		select {
		case s.ch <- Message{Event: env.Event, Data: env.Data}:
		case <-ctx.Done():
			return
		}
	}
}

// Decode unmarshals a message payload into its closed event type,
// rejecting unknown fields so shape drift surfaces instead of being
// silently trusted.
func Decode(m Message, v any) error {
	dec := json.NewDecoder(bytes.NewReader(m.Data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		decodeFailures.WithLabelValues(m.Event).Inc()
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("bus: decode %s payload", m.Event),
			errors.WithCause(err))
	}

	return nil
}

// DecodeEvent maps a message to its payload type by event name. Unknown
// event names are rejected.
func DecodeEvent(m Message) (any, error) {
	switch m.Event {
	case domain.EventNameQuestion:
		var e domain.EventQuestion
		return e, Decode(m, &e)
	case domain.EventNameScorecard:
		var e domain.EventScorecard
		return e, Decode(m, &e)
	case domain.EventNameResult:
		var e domain.EventResult
		return e, Decode(m, &e)
	case domain.EventNameWinner:
		var e domain.EventWinner
		return e, Decode(m, &e)
	case domain.EventNameNextQuestion:
		var e domain.EventNextQuestion
		return e, Decode(m, &e)
	case domain.EventNameDuelFinished:
		var e domain.EventDuelFinished
		return e, Decode(m, &e)
	case domain.EventNameHeartbeat:
		var e domain.EventHeartbeat
		return e, Decode(m, &e)
	case domain.EventNameMessage:
		var e domain.EventMessage
		return e, Decode(m, &e)
	default:
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("bus: unknown event %q", m.Event))
	}
}
