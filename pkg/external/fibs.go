package external

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// fibsFields is the number of leading fields ParseFIBSBoard reads, up to
// and including the direction.
const fibsFields = 42

// FIBSBoard represents a parsed FIBS board string.
// See: http://www.fibs.com/fibs_interface.html#board_state
type FIBSBoard struct {
	Player1      string  // Your name
	Player2      string  // Opponent's name
	MatchLength  int     // Match length (0 = unlimited)
	Score1       int     // Your score
	Score2       int     // Opponent's score
	Board        [26]int // Positions 0-25, signed by Color; 0 and 25 are the bars
	Turn         int     // Color of the side to move
	Dice         [2]int  // Your dice (0,0 if not rolled)
	OppDice      [2]int  // Opponent's dice
	Cube         int     // Cube value
	CanDouble    bool    // Can you double?
	OppCanDouble bool    // Can opponent double?
	Doubled      bool    // Has opponent doubled?
	Color        int     // Your color (1 or -1)
	Direction    int     // Your direction (-1 moves 24 to 1, 1 moves 1 to 24)
}

// ParseFIBSBoard parses a FIBS board string.
// Format: board:player1:player2:matchlen:score1:score2:board[26]:turn:dice[4]:cube:...
func ParseFIBSBoard(s string) (*FIBSBoard, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "board:")

	parts := strings.Split(s, ":")
	if len(parts) < fibsFields {
		return nil, fmt.Errorf("invalid FIBS board: expected at least %d fields, got %d", fibsFields, len(parts))
	}

	fb := &FIBSBoard{
		Player1: parts[0],
		Player2: parts[1],
	}

	ints := make([]int, fibsFields)
	for i := 2; i < fibsFields; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return nil, fmt.Errorf("invalid FIBS board: field %d: %q", i, parts[i])
		}
		ints[i] = n
	}

	fb.MatchLength, fb.Score1, fb.Score2 = ints[2], ints[3], ints[4]
	copy(fb.Board[:], ints[5:31])
	fb.Turn = ints[31]
	fb.Dice = [2]int{ints[32], ints[33]}
	fb.OppDice = [2]int{ints[34], ints[35]}
	fb.Cube = ints[36]
	fb.CanDouble = ints[37] == 1
	fb.OppCanDouble = ints[38] == 1
	fb.Doubled = ints[39] == 1
	fb.Color = ints[40]
	fb.Direction = ints[41]

	if fb.Color != 1 && fb.Color != -1 {
		return nil, fmt.Errorf("invalid FIBS board: color %d", fb.Color)
	}
	if fb.Direction != 1 && fb.Direction != -1 {
		return nil, fmt.Errorf("invalid FIBS board: direction %d", fb.Direction)
	}
	return fb, nil
}

// Side returns the engine side you play: White when moving 24 to 1.
func (fb *FIBSBoard) Side() engine.Side {
	if fb.Direction == -1 {
		return engine.White
	}
	return engine.Black
}

// ToMove returns the side to move.
func (fb *FIBSBoard) ToMove() engine.Side {
	if fb.Turn == fb.Color {
		return fb.Side()
	}
	return fb.Side().Opponent()
}

// Position converts the FIBS board to an engine board. Points keep their
// numbering; White's bar is position 25 and Black's position 0. Checkers
// missing from the board are borne off.
func (fb *FIBSBoard) Position() (engine.Board, error) {
	you := fb.Side()
	opp := you.Opponent()

	for i, n := range fb.Board {
		if abs(n) > engine.NumCheckers {
			return engine.Board{}, fmt.Errorf("invalid FIBS board: %d checkers on position %d", n, i)
		}
	}

	var board engine.Board
	for i := 1; i <= engine.NumPoints; i++ {
		switch n := fb.Board[i] * fb.Color; {
		case n > 0:
			board.Place(you, i, n)
		case n < 0:
			board.Place(opp, i, -n)
		}
	}
	board.SetBar(engine.White, abs(fb.Board[25]))
	board.SetBar(engine.Black, abs(fb.Board[0]))

	for _, side := range []engine.Side{engine.White, engine.Black} {
		n := board.Count(side)
		if n > engine.NumCheckers {
			return board, fmt.Errorf("invalid FIBS board: %s has %d checkers", side, n)
		}
		board.SetOff(side, engine.NumCheckers-n)
	}
	if err := board.Check(); err != nil {
		return board, fmt.Errorf("invalid FIBS board: %w", err)
	}
	return board, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// FormatPlay formats a play in gnubg notation, numbered from side's
// point of view.
func FormatPlay(play engine.Play, side engine.Side) string {
	parts := make([]string, play.Len())
	for i := range parts {
		m := play.Move(i)
		parts[i] = formatFIBSPoint(m.From, side) + "/" + formatFIBSPoint(m.To, side)
	}
	return strings.Join(parts, " ")
}

// formatFIBSPoint formats a location for FIBS output.
func formatFIBSPoint(loc engine.Location, side engine.Side) string {
	switch loc {
	case engine.On:
		return "bar"
	case engine.Off:
		return "off"
	}
	n := int(loc)
	if side == engine.Black {
		n = engine.NumPoints + 1 - n
	}
	return strconv.Itoa(n)
}
