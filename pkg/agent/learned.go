package agent

import (
	"context"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// Evaluator estimates the probability that White wins from an encoded
// position.
type Evaluator interface {
	Value(x []float64) float64
}

// Learned plays greedily against an Evaluator: White takes the play with
// the highest value, Black the lowest.
type Learned struct {
	model Evaluator
	x     []float64
}

// NewLearned returns an agent driven by model. The model is only read.
func NewLearned(model Evaluator) *Learned {
	return &Learned{model: model, x: make([]float64, engine.InputSize)}
}

// Choose scores every legal play by the value of the position it leaves.
func (a *Learned) Choose(ctx context.Context, legal []engine.Play, g *engine.Game) (engine.Play, error) {
	if len(legal) == 0 {
		return engine.Play{}, nil
	}
	if err := ctx.Err(); err != nil {
		return engine.Play{}, err
	}

	side := g.Turn()
	board := g.Board()

	best := legal[0]
	bestV := a.value(board.After(side, best), side.Opponent())
	for _, p := range legal[1:] {
		v := a.value(board.After(side, p), side.Opponent())
		if (side == engine.White && v > bestV) || (side == engine.Black && v < bestV) {
			best, bestV = p, v
		}
	}
	return best, nil
}

func (a *Learned) value(board engine.Board, turn engine.Side) float64 {
	if w, ok := board.Winner(); ok {
		return engine.WinArray(w, engine.White)[0]
	}
	engine.EncodeFeaturesInto(board, engine.White, turn, a.x)
	return a.model.Value(a.x)
}

// Value returns the estimated probability that White wins board with turn
// to move. Finished boards score exactly.
func Value(model Evaluator, board engine.Board, turn engine.Side) float64 {
	if w, ok := board.Winner(); ok {
		return engine.WinArray(w, engine.White)[0]
	}
	return model.Value(engine.EncodeFeatures(board, engine.White, turn))
}
