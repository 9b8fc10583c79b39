package trainer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/tdgammon/pkg/agent"
	"github.com/yourusername/tdgammon/pkg/engine"
)

// GameResult is the outcome of one evaluation game and the running tally
// after it.
type GameResult struct {
	Index        int
	LearnedSide  engine.Side
	Winner       engine.Side
	Turns        int
	Ratio        float64
	LearnedWins  int
	BaselineWins int
}

// Report summarises an evaluation run against the random baseline.
type Report struct {
	Episodes     int
	LearnedWins  int
	BaselineWins int
	// Ratio is learned wins over baseline wins, or learned wins when the
	// baseline never won.
	Ratio     float64
	MeanTurns float64
	Games     []GameResult
}

// WinRate returns the share of games the learned agent won.
func (r Report) WinRate() float64 {
	if r.Episodes == 0 {
		return 0
	}
	return float64(r.LearnedWins) / float64(r.Episodes)
}

func winRatio(learned, baseline int) float64 {
	if baseline > 0 {
		return float64(learned) / float64(baseline)
	}
	return float64(learned)
}

// Evaluate plays episodes games between a greedy agent driven by model and
// a random agent. Colours are drawn at random for every game. The model
// is only read.
func Evaluate(ctx context.Context, model agent.Evaluator, episodes int, seed uint64, logger zerolog.Logger) (Report, error) {
	rng := rand.New(rand.NewSource(seed))
	dice := engine.NewDice(seed + 1)
	learned := agent.NewLearned(model)
	baseline := agent.NewRandom(seed + 2)

	report := Report{Episodes: episodes}
	turns := make([]float64, 0, episodes)

	for i := 0; i < episodes; i++ {
		learnedSide := engine.White
		var white, black engine.Agent = learned, baseline
		if rng.Intn(2) == 1 {
			learnedSide = engine.Black
			white, black = baseline, learned
		}

		g := engine.NewGame(white, black, dice)
		winner, err := g.Run(ctx)
		if err != nil {
			return report, fmt.Errorf("test game %d: %w", i, err)
		}

		if winner == learnedSide {
			report.LearnedWins++
		} else {
			report.BaselineWins++
		}
		report.Ratio = winRatio(report.LearnedWins, report.BaselineWins)
		turns = append(turns, float64(g.Turns()))

		res := GameResult{
			Index:        i,
			LearnedSide:  learnedSide,
			Winner:       winner,
			Turns:        g.Turns(),
			Ratio:        report.Ratio,
			LearnedWins:  report.LearnedWins,
			BaselineWins: report.BaselineWins,
		}
		report.Games = append(report.Games, res)

		logger.Info().
			Int("episode", i).
			Float64("ratio", res.Ratio).
			Int("learned", res.LearnedWins).
			Int("random", res.BaselineWins).
			Msg("test game")
	}

	if len(turns) > 0 {
		report.MeanTurns = stat.Mean(turns, nil)
	}
	return report, nil
}
