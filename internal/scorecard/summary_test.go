package scorecard_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/scorecard"
)

func TestSummarize(t *testing.T) {
	in := 56
	entries := []domain.ScorecardEntry{
		{Index: 0, A: 7, B: 8, Status: domain.StatusFastest, Input: &in, ElapsedMs: 1234},
		{Index: 1, A: 9, B: 2, Status: domain.StatusSlower, ElapsedMs: 2000},
		{Index: 2, A: 3, B: 4, Status: domain.StatusWrong, ElapsedMs: 900},
		{Index: 3, A: 5, B: 5, Status: domain.StatusBothWrong},
	}

	s := scorecard.Summarize(entries)

	// slower still counts as answered correctly
	assert.Equal(t, 2, s.Correct)
	assert.Equal(t, 4, s.Total)
	assert.True(t, s.Accuracy.Equal(decimal.RequireFromString("0.5")), "accuracy %s", s.Accuracy)

	require.Len(t, s.Rows, 4)
	assert.True(t, s.Rows[0].Seconds.Equal(decimal.RequireFromString("1.23")), "seconds %s", s.Rows[0].Seconds)
	assert.True(t, s.Rows[1].Seconds.Equal(decimal.RequireFromString("2")), "seconds %s", s.Rows[1].Seconds)
}

func TestSummarize_Empty(t *testing.T) {
	s := scorecard.Summarize(nil)

	assert.Zero(t, s.Correct)
	assert.Zero(t, s.Total)
	assert.True(t, s.Accuracy.IsZero())
}
