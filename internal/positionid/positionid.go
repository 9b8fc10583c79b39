// Package positionid converts boards to and from GNU Backgammon position IDs.
//
// A position ID is a 14-character base64 string packing both sides'
// checker counts as runs of 1-bits separated by 0-bits: first the side
// not on roll, then the side on roll, 25 slots each (points 1-24 in that
// side's own direction, then the bar). Borne-off checkers are implied.
package positionid

import (
	"errors"
	"fmt"

	"github.com/yourusername/tdgammon/pkg/engine"
)

// PositionIDLength is the length of a position ID string
const PositionIDLength = 14

// Base64 alphabet used for position ID encoding
const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Starting is the ID of the standard starting position.
const Starting = "4HPwATDgc/ABMA"

// ErrInvalidPositionID is returned when a position ID is invalid
var ErrInvalidPositionID = errors.New("invalid position ID")

// key is the 80-bit packed form of a position.
type key [10]uint8

// addBits sets nBits 1-bits starting at bitPos
func (k *key) addBits(bitPos, nBits uint32) {
	i := bitPos / 8
	r := bitPos & 0x7
	b := ((uint32(1) << nBits) - 1) << r

	k[i] |= uint8(b)

	if i < 8 {
		k[i+1] |= uint8(b >> 8)
		k[i+2] |= uint8(b >> 16)
	} else if i == 8 {
		k[i+1] |= uint8(b >> 8)
	}
}

// slots returns the two sides' slot counts in key order.
func slots(board engine.Board, onRoll engine.Side) [2][25]uint8 {
	return [2][25]uint8{
		board.Checkers[onRoll.Opponent()],
		board.Checkers[onRoll],
	}
}

func makeKey(board engine.Board, onRoll engine.Side) key {
	var k key
	var bitPos uint32

	for _, side := range slots(board, onRoll) {
		for _, n := range side {
			nc := uint32(n)
			if nc > 0 {
				k.addBits(bitPos, nc)
				bitPos += nc + 1
			} else {
				bitPos++
			}
		}
	}
	return k
}

// unpack reads the slot counts back out of k. It fails if the bits
// describe more than 50 slots.
func (k key) unpack() ([2][25]uint8, error) {
	var s [2][25]uint8
	i, j := 0, 0

	for _, cur := range k {
		for b := 0; b < 8; b++ {
			if cur&0x1 != 0 {
				if i >= 2 {
					return s, ErrInvalidPositionID
				}
				s[i][j]++
			} else {
				j++
				if j == 25 {
					i++
					j = 0
				}
			}
			cur >>= 1
		}
	}
	return s, nil
}

func (k key) String() string {
	result := make([]byte, PositionIDLength)
	puch := k[:]

	for i := 0; i < 3; i++ {
		result[i*4] = base64Chars[puch[0]>>2]
		result[i*4+1] = base64Chars[((puch[0]&0x03)<<4)|(puch[1]>>4)]
		result[i*4+2] = base64Chars[((puch[1]&0x0F)<<2)|(puch[2]>>6)]
		result[i*4+3] = base64Chars[puch[2]&0x3F]
		puch = puch[3:]
	}

	result[12] = base64Chars[puch[0]>>2]
	result[13] = base64Chars[(puch[0]&0x03)<<4]

	return string(result)
}

// base64Decode decodes a base64 character to its value
func base64Decode(ch byte) uint8 {
	switch {
	case ch >= 'A' && ch <= 'Z':
		return ch - 'A'
	case ch >= 'a' && ch <= 'z':
		return ch - 'a' + 26
	case ch >= '0' && ch <= '9':
		return ch - '0' + 52
	case ch == '+':
		return 62
	case ch == '/':
		return 63
	}
	return 255
}

// Encode returns the position ID of board with onRoll to move.
func Encode(board engine.Board, onRoll engine.Side) string {
	return makeKey(board, onRoll).String()
}

// Decode parses a position ID with onRoll to move. Borne-off counts are
// whatever the encoded checkers leave of fifteen.
func Decode(posID string, onRoll engine.Side) (engine.Board, error) {
	var board engine.Board

	if len(posID) != PositionIDLength {
		return board, fmt.Errorf("%w: length %d", ErrInvalidPositionID, len(posID))
	}

	ach := make([]uint8, PositionIDLength)
	for i := 0; i < PositionIDLength; i++ {
		ach[i] = base64Decode(posID[i])
		if ach[i] == 255 {
			return board, fmt.Errorf("%w: bad character %q", ErrInvalidPositionID, posID[i])
		}
	}

	var k key
	pch := ach
	for i := 0; i < 3; i++ {
		k[i*3] = (pch[0] << 2) | (pch[1] >> 4)
		k[i*3+1] = (pch[1] << 4) | (pch[2] >> 2)
		k[i*3+2] = (pch[2] << 6) | pch[3]
		pch = pch[4:]
	}
	k[9] = (pch[0] << 2) | (pch[1] >> 4)

	s, err := k.unpack()
	if err != nil {
		return board, err
	}
	if !checkSlots(s) {
		return board, ErrInvalidPositionID
	}

	for i, side := range []engine.Side{onRoll.Opponent(), onRoll} {
		board.Checkers[side] = s[i]
		total := 0
		for _, n := range s[i] {
			total += int(n)
		}
		board.SetOff(side, engine.NumCheckers-total)
	}
	if err := board.Check(); err != nil {
		return board, fmt.Errorf("%w: %v", ErrInvalidPositionID, err)
	}
	return board, nil
}

// checkSlots validates that a decoded position is legal
func checkSlots(s [2][25]uint8) bool {
	var ac [2]uint32

	// Check for a player with over 15 checkers
	for i := 0; i < 25; i++ {
		ac[0] += uint32(s[0][i])
		ac[1] += uint32(s[1][i])
		if ac[0] > 15 || ac[1] > 15 {
			return false
		}
	}

	// Check for both players having checkers on the same point
	for i := 0; i < 24; i++ {
		if s[0][i] > 0 && s[1][23-i] > 0 {
			return false
		}
	}

	// Check for both players on the bar against closed boards
	for i := 0; i < 6; i++ {
		if s[0][i] < 2 || s[1][i] < 2 {
			return true
		}
	}

	return s[0][24] == 0 || s[1][24] == 0
}
