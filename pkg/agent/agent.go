// Package agent provides the players that choose moves in a game: a
// uniform random baseline, a console human, and a model-driven player.
package agent

import (
	"context"

	"golang.org/x/exp/rand"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// Random picks uniformly among the legal plays.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a Random agent seeded with seed.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Choose returns a uniformly chosen legal play, or a pass if there is none.
func (a *Random) Choose(_ context.Context, legal []engine.Play, _ *engine.Game) (engine.Play, error) {
	if len(legal) == 0 {
		return engine.Play{}, nil
	}
	return legal[a.rng.Intn(len(legal))], nil
}

var (
	_ engine.Agent = (*Random)(nil)
	_ engine.Agent = (*Human)(nil)
	_ engine.Agent = (*Learned)(nil)
)
