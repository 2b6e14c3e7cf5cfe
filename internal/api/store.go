package api

import (
	"sync"

	"github.com/mathduel/mathduel/internal/domain"
)

// defaultStoreLimit bounds how many recent rounds stay answerable,
// mirroring the history window the realtime transport keeps.
const defaultStoreLimit = 50

// roundStore remembers the last published question per round so answers
// can be evaluated statelessly. Oldest rounds fall out first.
type roundStore struct {
	mu    sync.Mutex
	limit int
	byID  map[string]*storedRound
	order []string
}

type storedRound struct {
	room     string
	question domain.EventQuestion
	resolved bool
}

func newRoundStore(limit int) *roundStore {
	return &roundStore{
		limit: limit,
		byID:  make(map[string]*storedRound),
	}
}

func (s *roundStore) put(room string, q domain.EventQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[q.RoundID]; !ok {
		s.order = append(s.order, q.RoundID)
	}
	s.byID[q.RoundID] = &storedRound{room: room, question: q}

	for len(s.order) > s.limit {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *roundStore) get(room, roundID string) (domain.EventQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[roundID]
	if !ok || r.room != room {
		return domain.EventQuestion{}, false
	}

	return r.question, true
}

// resolve marks the round's winner as decided. Returns true exactly once
// per round.
func (s *roundStore) resolve(room, roundID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[roundID]
	if !ok || r.room != room || r.resolved {
		return false
	}

	r.resolved = true
	return true
}
