package engine

import (
	"fmt"
	"math"
)

// Feature layout
const (
	unitsPerPoint = 4
	sideBlock     = NumPoints * unitsPerPoint // 96 point units per side

	idxBar  = 2 * sideBlock // perspective bar, opponent bar
	idxOff  = idxBar + 2    // perspective off, opponent off
	idxTurn = idxOff + 2    // perspective to move, opponent to move

	// InputSize is the length of an encoded position.
	InputSize = idxTurn + 2

	// OutputSize is the length of the value vector (win probability).
	OutputSize = 1
)

// pointUnits returns the four units for n checkers on a point.
// The first three are truncated unary, the fourth carries (n-3)/2.
func pointUnits(n uint8) [unitsPerPoint]float64 {
	var u [unitsPerPoint]float64
	if n >= 1 {
		u[0] = 1
	}
	if n >= 2 {
		u[1] = 1
	}
	if n >= 3 {
		u[2] = 1
	}
	if n > 3 {
		u[3] = float64(n-3) / 2
	}
	return u
}

// EncodeFeatures encodes board from perspective's point of view, with turn
// being the side to move. The perspective side's points come first, each
// side in its own direction of travel, so a board encoded for Black equals
// its mirror encoded for White.
func EncodeFeatures(board Board, perspective, turn Side) []float64 {
	x := make([]float64, InputSize)
	EncodeFeaturesInto(board, perspective, turn, x)
	return x
}

// EncodeFeaturesInto writes the encoding into x, which must hold InputSize values.
func EncodeFeaturesInto(board Board, perspective, turn Side, x []float64) {
	sides := [2]Side{perspective, perspective.Opponent()}
	for k, side := range sides {
		offset := k * sideBlock
		for i := 0; i < NumPoints; i++ {
			u := pointUnits(board.Checkers[side][i])
			copy(x[offset+i*unitsPerPoint:], u[:])
		}
		x[idxBar+k] = float64(board.Checkers[side][barIndex]) / 2
		x[idxOff+k] = float64(board.Borne[side]) / NumCheckers
	}
	x[idxTurn], x[idxTurn+1] = 0, 0
	if turn == perspective {
		x[idxTurn] = 1
	} else {
		x[idxTurn+1] = 1
	}
}

// DecodeFeatures recovers the board and side to move from an encoding
// produced with the given perspective.
func DecodeFeatures(x []float64, perspective Side) (Board, Side, error) {
	var b Board
	if len(x) != InputSize {
		return b, NoSide, fmt.Errorf("encoding has %d values, expected %d", len(x), InputSize)
	}
	sides := [2]Side{perspective, perspective.Opponent()}
	for k, side := range sides {
		offset := k * sideBlock
		for i := 0; i < NumPoints; i++ {
			u := x[offset+i*unitsPerPoint : offset+(i+1)*unitsPerPoint]
			n := u[0] + u[1] + u[2]
			if u[3] > 0 {
				n = 3 + 2*u[3]
			}
			b.Checkers[side][i] = uint8(math.Round(n))
		}
		b.Checkers[side][barIndex] = uint8(math.Round(x[idxBar+k] * 2))
		b.Borne[side] = uint8(math.Round(x[idxOff+k] * NumCheckers))
	}
	turn := sides[1]
	if x[idxTurn] == 1 {
		turn = sides[0]
	}
	return b, turn, nil
}

// WinArray returns the terminal target for perspective: 1 if winner is
// perspective, 0 otherwise.
func WinArray(winner, perspective Side) []float64 {
	if winner == perspective {
		return []float64{1}
	}
	return []float64{0}
}
