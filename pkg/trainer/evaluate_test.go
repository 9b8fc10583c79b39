package trainer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tdgammon/pkg/engine"
)

type constEvaluator float64

func (c constEvaluator) Value([]float64) float64 { return float64(c) }

func TestEvaluate(t *testing.T) {
	report, err := Evaluate(context.Background(), constEvaluator(0.5), 20, 7, zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, 20, report.Episodes)
	require.Len(t, report.Games, 20)
	require.Equal(t, 20, report.LearnedWins+report.BaselineWins)
	require.Equal(t, winRatio(report.LearnedWins, report.BaselineWins), report.Ratio)
	require.Greater(t, report.MeanTurns, 0.0)

	sides := make(map[engine.Side]int)
	learned, baseline := 0, 0
	for i, g := range report.Games {
		require.Equal(t, i, g.Index)
		sides[g.LearnedSide]++
		if g.Winner == g.LearnedSide {
			learned++
		} else {
			baseline++
		}
		require.Equal(t, learned, g.LearnedWins)
		require.Equal(t, baseline, g.BaselineWins)
		require.Equal(t, winRatio(learned, baseline), g.Ratio)
	}
	// Colours are shuffled
	require.Greater(t, sides[engine.White], 0)
	require.Greater(t, sides[engine.Black], 0)
}

func TestEvaluateDeterministic(t *testing.T) {
	a, err := Evaluate(context.Background(), constEvaluator(0.5), 5, 3, zerolog.Nop())
	require.NoError(t, err)
	b, err := Evaluate(context.Background(), constEvaluator(0.5), 5, 3, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestWinRatio(t *testing.T) {
	require.Equal(t, 3.0, winRatio(3, 0))
	require.Equal(t, 1.5, winRatio(3, 2))
	require.Equal(t, 0.0, winRatio(0, 4))
}

func TestReportWinRate(t *testing.T) {
	require.Equal(t, 0.0, Report{}.WinRate())
	require.Equal(t, 0.25, Report{Episodes: 4, LearnedWins: 1}.WinRate())
}
