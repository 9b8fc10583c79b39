package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// ErrIllegalTurn is returned by Replay for a turn the rules do not allow.
var ErrIllegalTurn = errors.New("illegal turn")

// Record plays g to the end and returns its transcript. On error the
// turns played so far are returned with it.
func Record(ctx context.Context, g *engine.Game, number int) (*Game, error) {
	rec := NewGame(number)
	for !g.Finished() {
		if err := ctx.Err(); err != nil {
			return rec, err
		}
		side := g.Turn()
		if err := g.Roll(); err != nil {
			return rec, err
		}
		pips := g.Pips()
		if err := g.Move(ctx); err != nil {
			return rec, err
		}
		rec.AddTurn(side, pips[0], pips[1], g.LastPlay())
	}
	rec.Winner, _ = g.Winner()
	return rec, nil
}

// Replay checks every turn against the rules, starting from the standard
// position, and returns the final board. A recorded play is accepted when
// it leaves the same board as one of the legal plays for its roll.
func (g *Game) Replay() (engine.Board, error) {
	board := engine.StartingBoard()

	for i, t := range g.Turns {
		if board.Finished() {
			return board, fmt.Errorf("%w: turn %d after the game ended", ErrIllegalTurn, i+1)
		}
		if i > 0 && t.Side != g.Turns[i-1].Side.Opponent() {
			return board, fmt.Errorf("%w: turn %d: %s moved twice", ErrIllegalTurn, i+1, t.Side)
		}
		if t.Side != engine.White && t.Side != engine.Black {
			return board, fmt.Errorf("%w: turn %d: no side", ErrIllegalTurn, i+1)
		}
		for _, d := range t.Dice {
			if d < 1 || d > 6 {
				return board, fmt.Errorf("%w: turn %d: die %d", ErrIllegalTurn, i+1, d)
			}
		}

		legal := engine.GeneratePlays(board, t.Side, engine.RollPips(t.Dice[0], t.Dice[1]))
		if !legalResult(board, t.Side, legal, t.Play) {
			return board, fmt.Errorf("%w: turn %d: %s rolled %d%d and played %s",
				ErrIllegalTurn, i+1, t.Side, t.Dice[0], t.Dice[1], t.Play)
		}
		board.Apply(t.Side, t.Play)
	}

	winner, finished := board.Winner()
	switch {
	case finished && g.Winner != winner:
		return board, fmt.Errorf("%w: %s won but the record says %s", ErrIllegalTurn, winner, g.Winner)
	case !finished && g.Winner != engine.NoSide:
		return board, fmt.Errorf("%w: record says %s won an unfinished game", ErrIllegalTurn, g.Winner)
	}
	return board, nil
}

func legalResult(board engine.Board, side engine.Side, legal []engine.Play, play engine.Play) bool {
	if len(legal) == 0 || play.IsPass() {
		return len(legal) == 0 && play.IsPass()
	}
	after := board.After(side, play)
	for _, lp := range legal {
		if board.After(side, lp) == after {
			return true
		}
	}
	return false
}
