package round

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/mathduel/mathduel/internal/domain"
)

// Generator produces randomized, duplicate-free question pools.
// NewGenerator uses the shared unseeded source; tests use a seeded one
// for reproducible rounds.
type Generator struct {
	intN func(n int) int
}

func NewGenerator() *Generator {
	return &Generator{intN: rand.IntN}
}

// NewSeededGenerator returns a generator backed by a deterministic source.
func NewSeededGenerator(seed uint64) *Generator {
	r := rand.New(rand.NewPCG(seed, seed))
	return &Generator{intN: r.IntN}
}

// Generate builds the full cross product of operands in the band's range,
// shuffles it, and truncates to count. When count exceeds the unique-pair
// space the whole pool is returned; callers clamp by reading the result's
// length.
func (g *Generator) Generate(band domain.Band, count int) []domain.Question {
	min, max := band.Range()

	pool := make([]domain.Question, 0, band.PoolSize())
	for a := min; a <= max; a++ {
		for b := min; b <= max; b++ {
			pool = append(pool, domain.Question{A: a, B: b})
		}
	}

	// Fisher-Yates
	for i := len(pool) - 1; i > 0; i-- {
		j := g.intN(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}

	if count > len(pool) {
		count = len(pool)
	}
	if count < 0 {
		count = 0
	}

	qs := pool[:count]
	for i := range qs {
		qs[i].Index = i
	}

	return qs
}

// NewRound generates a fresh round with a unique round ID.
func (g *Generator) NewRound(band domain.Band, count int) *domain.Round {
	qs := g.Generate(band, count)

	return &domain.Round{
		RoundID:       uuid.NewString(),
		Band:          band,
		QuestionCount: len(qs),
		Questions:     qs,
		StartedAt:     time.Now(),
	}
}
