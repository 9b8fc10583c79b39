package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeSize(t *testing.T) {
	x := EncodeFeatures(StartingBoard(), White, White)
	require.Len(t, x, InputSize)
	require.Equal(t, 198, InputSize)
}

func TestEncodePointUnits(t *testing.T) {
	tests := []struct {
		n    uint8
		want [4]float64
	}{
		{0, [4]float64{0, 0, 0, 0}},
		{1, [4]float64{1, 0, 0, 0}},
		{2, [4]float64{1, 1, 0, 0}},
		{3, [4]float64{1, 1, 1, 0}},
		{4, [4]float64{1, 1, 1, 0.5}},
		{15, [4]float64{1, 1, 1, 6}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, pointUnits(tt.n), "n=%d", tt.n)
	}
}

func TestEncodeStartingPosition(t *testing.T) {
	x := EncodeFeatures(StartingBoard(), White, White)

	// White's 6-point (index 5) holds five checkers
	require.Equal(t, []float64{1, 1, 1, 1}, x[5*4:6*4])
	// Black's block starts after White's; its 24-point holds two
	require.Equal(t, []float64{1, 1, 0, 0}, x[sideBlock+23*4:sideBlock+24*4])
	require.Equal(t, []float64{1, 0}, x[idxTurn:])

	x = EncodeFeatures(StartingBoard(), White, Black)
	require.Equal(t, []float64{0, 1}, x[idxTurn:])
}

func TestEncodeRoundTrip(t *testing.T) {
	boards := []Board{StartingBoard()}

	b := StartingBoard()
	b.Place(White, 24, 1)
	b.SetBar(White, 1)
	b.Place(Black, 12, 3)
	b.SetOff(Black, 2)
	boards = append(boards, b)

	var stacked Board
	stacked.Place(White, 1, 15)
	stacked.Place(Black, 24, 9)
	stacked.SetBar(Black, 2)
	stacked.SetOff(Black, 4)
	boards = append(boards, stacked)

	boards = append(boards, selfPlayBoards(t, 3, 11)...)

	for _, board := range boards {
		for _, perspective := range []Side{White, Black} {
			for _, turn := range []Side{White, Black} {
				x := EncodeFeatures(board, perspective, turn)
				got, gotTurn, err := DecodeFeatures(x, perspective)
				require.NoError(t, err)
				require.Equal(t, board, got)
				require.Equal(t, turn, gotTurn)
			}
		}
	}
}

func TestEncodeSideSymmetry(t *testing.T) {
	for _, board := range selfPlayBoards(t, 2, 5) {
		for _, turn := range []Side{White, Black} {
			require.Equal(t,
				EncodeFeatures(board, White, turn),
				EncodeFeatures(board.Mirror(), Black, turn.Opponent()))
		}
	}
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	_, _, err := DecodeFeatures(make([]float64, 10), White)
	require.Error(t, err)
}

func TestWinArray(t *testing.T) {
	require.Equal(t, []float64{1}, WinArray(White, White))
	require.Equal(t, []float64{0}, WinArray(White, Black))
	require.Equal(t, []float64{1}, WinArray(Black, Black))
	require.Len(t, WinArray(Black, White), OutputSize)
}
