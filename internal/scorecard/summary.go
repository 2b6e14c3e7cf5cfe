package scorecard

import (
	"github.com/shopspring/decimal"

	"github.com/mathduel/mathduel/internal/domain"
)

// Summary is the final result-table view of a scorecard. Times are kept
// as exact decimals so "1.20 s" never renders as "1.2000000001 s".
type Summary struct {
	Correct  int
	Total    int
	Accuracy decimal.Decimal
	Rows     []SummaryRow
}

type SummaryRow struct {
	Index   int
	A, B    int
	Status  domain.Status
	Input   *int
	Seconds decimal.Decimal
}

// Summarize tallies the scorecard. Correct, fastest and slower entries all
// count as answered correctly.
func Summarize(entries []domain.ScorecardEntry) Summary {
	s := Summary{Total: len(entries)}

	for _, entry := range entries {
		if entry.Status.AnsweredCorrectly() {
			s.Correct++
		}

		s.Rows = append(s.Rows, SummaryRow{
			Index:   entry.Index,
			A:       entry.A,
			B:       entry.B,
			Status:  entry.Status,
			Input:   entry.Input,
			Seconds: decimal.NewFromInt(entry.ElapsedMs).Div(decimal.NewFromInt(1000)).Round(2),
		})
	}

	if s.Total > 0 {
		s.Accuracy = decimal.NewFromInt(int64(s.Correct)).Div(decimal.NewFromInt(int64(s.Total))).Round(4)
	}

	return s
}
