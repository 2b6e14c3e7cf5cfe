package token

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mathduel/mathduel/internal/errors"
)

// DefaultTTL matches the short-lived channel credentials the realtime
// transport expects.
const DefaultTTL = time.Hour

// Service issues short-lived credentials that authorize a client for a
// room channel. The core treats the credential as opaque; it only has to
// exist before a usable bus handle can be obtained.
type Service struct {
	key   string
	ttl   time.Duration
	clock clockwork.Clock
}

type Config struct {
	// Key is the transport API key. Issuance fails without one.
	Key   string
	TTL   time.Duration
	Clock clockwork.Clock
}

func NewService(c Config) *Service {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}

	return &Service{
		key:   c.Key,
		ttl:   c.TTL,
		clock: c.Clock,
	}
}

type Credential struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	Room      string    `json:"room,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issue creates a credential for the client. Not retried automatically on
// failure: the caller surfaces a connection-failed status instead.
func (s *Service) Issue(room, clientID string) (*Credential, error) {
	if s.key == "" {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("token: no signing key configured"))
	}
	if clientID == "" {
		clientID = "anon"
	}

	return &Credential{
		Token:     uuid.NewString(),
		ClientID:  clientID,
		Room:      room,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}, nil
}
