// Package engine implements the backgammon rules used by the trainer:
// board state, dice, legal play generation and the turn state machine.
package engine

import (
	"fmt"
	"strings"
)

// NumCheckers is the number of checkers each side owns.
const NumCheckers = 15

// NumPoints is the number of points on the board.
const NumPoints = 24

// barIndex is the side-relative index of the bar.
const barIndex = 24

// Side identifies a player colour.
type Side int8

const (
	NoSide Side = -1
	White  Side = 0 // moves 24 -> 1, home board 1-6
	Black  Side = 1 // moves 1 -> 24, home board 19-24
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	return 1 - s
}

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseSide parses "white"/"black" (also "w"/"b", any case).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return NoSide, fmt.Errorf("unknown side %q", s)
}

// Location is an absolute board location: a point 1-24, On or Off.
type Location int8

const (
	Off Location = 0  // borne off; only valid as a destination
	On  Location = 25 // the bar; only valid as a source
)

// IsPoint reports whether l is one of the 24 points.
func (l Location) IsPoint() bool {
	return l >= 1 && l <= NumPoints
}

func (l Location) String() string {
	switch l {
	case On:
		return "on"
	case Off:
		return "off"
	}
	return fmt.Sprintf("%d", int(l))
}

// Board holds checker positions for both sides.
//
// Checkers[side] is indexed in that side's own direction of travel:
// index 0-23 is the side's 1- to 24-point, index 24 is its bar. The
// opponent's index for the same physical point is 23-i. Board is a value
// type; copying it gives an independent position.
type Board struct {
	Checkers [2][25]uint8
	Borne    [2]uint8
}

// relIndex converts an absolute point to a side-relative index.
func relIndex(side Side, point int) int {
	if side == White {
		return point - 1
	}
	return NumPoints - point
}

// absPoint converts a side-relative index (0-23) to an absolute point.
func absPoint(side Side, idx int) int {
	if side == White {
		return idx + 1
	}
	return NumPoints - idx
}

// StartingBoard returns the standard starting position.
func StartingBoard() Board {
	var b Board
	for side := 0; side < 2; side++ {
		b.Checkers[side][5] = 5  // 6-point
		b.Checkers[side][7] = 3  // 8-point
		b.Checkers[side][12] = 5 // mid-point
		b.Checkers[side][23] = 2 // back checkers
	}
	return b
}

// At returns the owner and count of an absolute point (1-24).
// Empty points report NoSide.
func (b Board) At(point int) (Side, int) {
	if n := b.Checkers[White][relIndex(White, point)]; n > 0 {
		return White, int(n)
	}
	if n := b.Checkers[Black][relIndex(Black, point)]; n > 0 {
		return Black, int(n)
	}
	return NoSide, 0
}

// Place sets the number of side's checkers on an absolute point.
// It does not touch the opponent or the off tray; callers keep counts balanced.
func (b *Board) Place(side Side, point, n int) {
	b.Checkers[side][relIndex(side, point)] = uint8(n)
}

// Bar returns the number of side's checkers on the bar.
func (b Board) Bar(side Side) int {
	return int(b.Checkers[side][barIndex])
}

// SetBar sets the number of side's checkers on the bar.
func (b *Board) SetBar(side Side, n int) {
	b.Checkers[side][barIndex] = uint8(n)
}

// Off returns the number of side's checkers borne off.
func (b Board) Off(side Side) int {
	return int(b.Borne[side])
}

// SetOff sets the number of side's checkers borne off.
func (b *Board) SetOff(side Side, n int) {
	b.Borne[side] = uint8(n)
}

// Count returns the checkers side has on points, bar and off.
func (b Board) Count(side Side) int {
	n := int(b.Borne[side])
	for _, c := range b.Checkers[side] {
		n += int(c)
	}
	return n
}

// Check validates the board invariants: 15 checkers per side and no
// point shared by both sides.
func (b Board) Check() error {
	for _, side := range []Side{White, Black} {
		if n := b.Count(side); n != NumCheckers {
			return fmt.Errorf("%w: %s has %d checkers", ErrInvariant, side, n)
		}
	}
	for i := 0; i < NumPoints; i++ {
		if b.Checkers[White][i] > 0 && b.Checkers[Black][23-i] > 0 {
			return fmt.Errorf("%w: point %d held by both sides", ErrInvariant, absPoint(White, i))
		}
	}
	return nil
}

// Finished reports whether either side has borne off all its checkers.
func (b Board) Finished() bool {
	return b.Borne[White] == NumCheckers || b.Borne[Black] == NumCheckers
}

// Winner returns the side that has borne off all checkers.
func (b Board) Winner() (Side, bool) {
	switch {
	case b.Borne[White] == NumCheckers:
		return White, true
	case b.Borne[Black] == NumCheckers:
		return Black, true
	}
	return NoSide, false
}

// Mirror returns the board with the colours swapped.
func (b Board) Mirror() Board {
	return Board{
		Checkers: [2][25]uint8{b.Checkers[Black], b.Checkers[White]},
		Borne:    [2]uint8{b.Borne[Black], b.Borne[White]},
	}
}

// PipCount returns the total distance side still has to travel.
func (b Board) PipCount(side Side) int {
	n := 0
	for i := 0; i < 25; i++ {
		n += int(b.Checkers[side][i]) * (i + 1)
	}
	return n
}

// String draws the board with White (O) moving towards point 1 at the bottom right.
func (b Board) String() string {
	var sb strings.Builder
	row := func(points []int, top bool) {
		for line := 0; line < 5; line++ {
			sb.WriteString(" |")
			for k, p := range points {
				if k == 6 {
					sb.WriteString(" |")
				}
				side, n := b.At(p)
				level := line
				if !top {
					level = 4 - line
				}
				cell := "  ."
				switch {
				case n > level && level == 4 && n > 5:
					cell = fmt.Sprintf("%3d", n)
				case n > level:
					cell = "  " + checkerGlyph(side)
				}
				sb.WriteString(cell)
			}
			sb.WriteString(" |\n")
		}
	}
	sb.WriteString("  13 14 15 16 17 18    19 20 21 22 23 24\n")
	sb.WriteString(" +-------------------+--------------------+\n")
	row([]int{13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24}, true)
	fmt.Fprintf(&sb, " |  bar O:%-2d X:%-2d    off O:%-2d X:%-2d      |\n",
		b.Bar(White), b.Bar(Black), b.Off(White), b.Off(Black))
	row([]int{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, false)
	sb.WriteString(" +-------------------+--------------------+\n")
	sb.WriteString("  12 11 10  9  8  7     6  5  4  3  2  1\n")
	return sb.String()
}

func checkerGlyph(s Side) string {
	if s == White {
		return "O"
	}
	return "X"
}
