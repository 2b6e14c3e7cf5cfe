package duel

import (
	"github.com/mathduel/mathduel/internal/domain"
)

// Correct is the answer check: exact integer equality, no tolerance.
func Correct(answer, a, b int) bool {
	return answer == a*b
}

// arbiter resolves the answer race for a single question on the host. The
// first arriving correct answer wins; a second answer from the same player
// is never double-counted; once resolved, later answers are ignored. The
// rule is "first correct wins" over however many participants are
// expected, it does not special-case two.
type arbiter struct {
	question domain.Question
	roundID  string
	expected int

	answers  map[string]domain.EventResult
	resolved bool
}

func newArbiter(roundID string, q domain.Question, expected int) *arbiter {
	return &arbiter{
		question: q,
		roundID:  roundID,
		expected: expected,
		answers:  make(map[string]domain.EventResult),
	}
}

// observe feeds one answer event, re-checking correctness against the
// host's own operands rather than trusting the event's flags. It returns
// the outcome to publish when this event resolves the question: either the
// first correct answer arrived, or every expected participant has answered
// and nobody was right.
func (ar *arbiter) observe(ev domain.EventResult) (domain.EventWinner, bool) {
	if ar.resolved {
		return domain.EventWinner{}, false
	}

	if _, dup := ar.answers[ev.PlayerID]; dup {
		return domain.EventWinner{}, false
	}
	ar.answers[ev.PlayerID] = ev

	if Correct(ev.Answer, ar.question.A, ar.question.B) {
		ar.resolved = true
		return ar.winnerOutcome(ev), true
	}

	if len(ar.answers) >= ar.expected {
		ar.resolved = true
		return ar.bothWrongOutcome(), true
	}

	return domain.EventWinner{}, false
}

func (ar *arbiter) winnerOutcome(win domain.EventResult) domain.EventWinner {
	out := domain.EventWinner{
		RoundID:       ar.roundID,
		PlayerID:      win.PlayerID,
		Answer:        win.Answer,
		TimeMs:        win.TimeMs,
		QuestionIndex: ar.question.Index,
		Correct:       true,
		A:             ar.question.A,
		B:             ar.question.B,
	}

	// What we know about the losers at resolution time. A correct loser
	// cannot exist (it would have resolved the race first), but the flags
	// are derived rather than assumed.
	for id, ans := range ar.answers {
		if id == win.PlayerID {
			continue
		}
		if Correct(ans.Answer, ar.question.A, ar.question.B) {
			out.OtherCorrect = true
		} else {
			out.OtherWrong = true
		}
	}

	return out
}

func (ar *arbiter) bothWrongOutcome() domain.EventWinner {
	return domain.EventWinner{
		RoundID:       ar.roundID,
		QuestionIndex: ar.question.Index,
		BothWrong:     true,
		A:             ar.question.A,
		B:             ar.question.B,
	}
}
