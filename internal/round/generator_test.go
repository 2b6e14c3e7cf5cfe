package round_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathduel/mathduel/internal/domain"
	"github.com/mathduel/mathduel/internal/round"
)

func TestGenerator_Generate(t *testing.T) {
	type (
		inputs struct {
			band  domain.Band
			count int
		}

		outputs struct {
			questions []domain.Question
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"small band produces the requested count within range": {
			arrange: func() inputs {
				return inputs{band: domain.BandSmall, count: 10}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.questions, 10)
				for _, q := range out.questions {
					assert.GreaterOrEqual(t, q.A, 2)
					assert.LessOrEqual(t, q.A, 10)
					assert.GreaterOrEqual(t, q.B, 2)
					assert.LessOrEqual(t, q.B, 10)
				}
			},
		},

		"big band operands stay in 10..20": {
			arrange: func() inputs {
				return inputs{band: domain.BandBig, count: 20}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.questions, 20)
				for _, q := range out.questions {
					assert.GreaterOrEqual(t, q.A, 10)
					assert.LessOrEqual(t, q.A, 20)
				}
			},
		},

		"no duplicate operand pair within a round": {
			arrange: func() inputs {
				return inputs{band: domain.BandSmall, count: 81}
			},

			assert: func(t *testing.T, out outputs) {
				seen := make(map[[2]int]bool)
				for _, q := range out.questions {
					pair := [2]int{q.A, q.B}
					assert.False(t, seen[pair], "duplicate pair %v", pair)
					seen[pair] = true
				}
			},
		},

		"count beyond the pool clamps to the pool size": {
			arrange: func() inputs {
				// small band has 9*9 unique pairs
				return inputs{band: domain.BandSmall, count: 500}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.questions, domain.BandSmall.PoolSize())
			},
		},

		"indexes follow the generated order": {
			arrange: func() inputs {
				return inputs{band: domain.BandMixed, count: 5}
			},

			assert: func(t *testing.T, out outputs) {
				for i, q := range out.questions {
					assert.Equal(t, i, q.Index)
				}
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			g := round.NewSeededGenerator(7)

			tt.assert(t, outputs{questions: g.Generate(in.band, in.count)})
		})
	}
}

func TestGenerator_SeededReproducibility(t *testing.T) {
	a := round.NewSeededGenerator(99).Generate(domain.BandSmall, 10)
	b := round.NewSeededGenerator(99).Generate(domain.BandSmall, 10)

	require.Equal(t, a, b)
}

func TestGenerator_NewRound(t *testing.T) {
	g := round.NewSeededGenerator(1)

	r := g.NewRound(domain.BandSmall, 3)

	require.NotEmpty(t, r.RoundID)
	require.Equal(t, 3, r.QuestionCount)
	require.Len(t, r.Questions, 3)
	require.Equal(t, domain.BandSmall, r.Band)

	// Consecutive rounds get distinct identities.
	require.NotEqual(t, r.RoundID, g.NewRound(domain.BandSmall, 3).RoundID)
}
