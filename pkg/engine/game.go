package engine

import (
	"context"
	"fmt"
)

// Phase is the state of a game's turn cycle.
type Phase int

const (
	AwaitingRoll Phase = iota
	AwaitingMove
	Terminal
)

func (p Phase) String() string {
	switch p {
	case AwaitingRoll:
		return "awaiting-roll"
	case AwaitingMove:
		return "awaiting-move"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// Agent chooses a play for the side to move.
//
// legal is the full set of legal plays for the current roll. Choose must
// return one of them (or its reverse), or the zero Play when legal is empty.
type Agent interface {
	Choose(ctx context.Context, legal []Play, g *Game) (Play, error)
}

// Game runs a single game between two agents.
type Game struct {
	board  Board
	agents [2]Agent
	dice   *Dice
	turn   Side
	phase  Phase
	winner Side
	pips   Pips
	legal  []Play
	turns  int
	last   Play
}

// NewGame starts a game from the standard position. The opening roll
// decides which side moves first.
func NewGame(white, black Agent, dice *Dice) *Game {
	return NewGameFrom(StartingBoard(), dice.First(), white, black, dice)
}

// NewGameFrom starts a game from an arbitrary position with turn to move.
func NewGameFrom(board Board, turn Side, white, black Agent, dice *Dice) *Game {
	g := &Game{
		board:  board,
		agents: [2]Agent{white, black},
		dice:   dice,
		turn:   turn,
		phase:  AwaitingRoll,
		winner: NoSide,
	}
	if w, ok := board.Winner(); ok {
		g.phase = Terminal
		g.winner = w
	}
	return g
}

// Board returns a copy of the current position.
func (g *Game) Board() Board { return g.board }

// Turn returns the side to move.
func (g *Game) Turn() Side { return g.turn }

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// Pips returns the pips rolled for the current turn.
func (g *Game) Pips() Pips { return g.pips }

// Legal returns the legal plays for the current roll.
func (g *Game) Legal() []Play { return g.legal }

// Turns returns the number of completed turns.
func (g *Game) Turns() int { return g.turns }

// LastPlay returns the play made on the previous turn.
func (g *Game) LastPlay() Play { return g.last }

// Winner returns the winning side once the game is over.
func (g *Game) Winner() (Side, bool) {
	return g.winner, g.winner != NoSide
}

// Finished reports whether the game has reached its terminal phase.
func (g *Game) Finished() bool { return g.phase == Terminal }

// Features encodes the position from White's perspective.
func (g *Game) Features() []float64 {
	return EncodeFeatures(g.board, White, g.turn)
}

// WinArray returns the terminal target from White's perspective.
func (g *Game) WinArray() []float64 {
	return WinArray(g.winner, White)
}

// Roll throws the dice for the side to move and generates its legal plays.
func (g *Game) Roll() error {
	if g.phase != AwaitingRoll {
		return fmt.Errorf("roll: %w (%s)", ErrWrongPhase, g.phase)
	}
	return g.RollWith(g.dice.Roll())
}

// RollWith uses the given pips instead of throwing the dice.
func (g *Game) RollWith(pips Pips) error {
	if g.phase != AwaitingRoll {
		return fmt.Errorf("roll: %w (%s)", ErrWrongPhase, g.phase)
	}
	g.pips = pips
	g.legal = GeneratePlays(g.board, g.turn, pips)
	g.phase = AwaitingMove
	return nil
}

// Move asks the side to move for its play and applies it.
//
// A play outside the legal set is an ErrIllegalMove. A board that fails
// Check after the move aborts the game: the phase becomes Terminal with
// no winner and the error wraps ErrInvariant.
func (g *Game) Move(ctx context.Context) error {
	if g.phase != AwaitingMove {
		return fmt.Errorf("move: %w (%s)", ErrWrongPhase, g.phase)
	}

	side := g.turn
	chosen, err := g.agents[side].Choose(ctx, g.legal, g)
	if err != nil {
		return fmt.Errorf("%s agent: %w", side, err)
	}

	var play Play
	switch {
	case len(g.legal) == 0 && chosen.IsPass():
		// forced pass
	case len(g.legal) == 0:
		return fmt.Errorf("%w: %s played %s with no legal moves", ErrIllegalMove, side, chosen)
	default:
		legal, ok := FindPlay(g.legal, chosen)
		if !ok {
			return fmt.Errorf("%w: %s played %s", ErrIllegalMove, side, chosen)
		}
		play = legal
	}

	return g.apply(side, play)
}

func (g *Game) apply(side Side, play Play) error {
	g.board.Apply(side, play)
	g.last = play
	g.turns++
	g.pips = nil
	g.legal = nil

	if err := g.board.Check(); err != nil {
		g.phase = Terminal
		return fmt.Errorf("after %s played %s: %w", side, play, err)
	}

	if g.board.Finished() {
		g.winner = side
		g.phase = Terminal
		return nil
	}

	g.turn = side.Opponent()
	g.phase = AwaitingRoll
	return nil
}

// Step plays one full turn: roll, choose, apply.
func (g *Game) Step(ctx context.Context) error {
	if err := g.Roll(); err != nil {
		return err
	}
	return g.Move(ctx)
}

// Run plays turns until the game ends and returns the winner.
func (g *Game) Run(ctx context.Context) (Side, error) {
	for g.phase != Terminal {
		if err := ctx.Err(); err != nil {
			return NoSide, err
		}
		if err := g.Step(ctx); err != nil {
			return NoSide, err
		}
	}
	return g.winner, nil
}
