// Package match provides game record import/export for backgammon games.
// Supports SGF (Smart Game Format) and MAT (Jellyfish Match) formats.
package match

import (
	"errors"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// ErrBadRecord is returned for records that cannot be parsed.
var ErrBadRecord = errors.New("malformed game record")

// Match is a series of money games between two players.
type Match struct {
	White string // Name of the player moving 24 to 1
	Black string // Name of the player moving 1 to 24
	Date  string // Date (YYYY-MM-DD format)
	Event string // Event name
	Place string // Location
	Games []*Game
}

// Game is the transcript of a single game.
type Game struct {
	Number int         // Game number (1-indexed)
	Turns  []Turn      // Turns in the order they were played
	Winner engine.Side // NoSide while unfinished
}

// Turn is one roll and the play made with it. The zero Play is a pass.
type Turn struct {
	Side engine.Side
	Dice [2]int
	Play engine.Play
}

// NewMatch creates a new empty match.
func NewMatch(white, black string) *Match {
	return &Match{
		White: white,
		Black: black,
		Games: make([]*Game, 0),
	}
}

// NewGame creates a new unfinished game.
func NewGame(number int) *Game {
	return &Game{
		Number: number,
		Winner: engine.NoSide,
	}
}

// AddTurn appends a turn to the game.
func (g *Game) AddTurn(side engine.Side, die1, die2 int, play engine.Play) {
	g.Turns = append(g.Turns, Turn{
		Side: side,
		Dice: [2]int{die1, die2},
		Play: play,
	})
}
