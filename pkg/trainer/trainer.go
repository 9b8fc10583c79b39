// Package trainer runs TD(λ) self-play training and evaluates the result
// against a random baseline.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/tdgammon/internal/checkpoint"
	"github.com/yourusername/tdgammon/internal/config"
	"github.com/yourusername/tdgammon/internal/neuralnet"
	"github.com/yourusername/tdgammon/internal/positionid"
	"github.com/yourusername/tdgammon/pkg/agent"
	"github.com/yourusername/tdgammon/pkg/engine"
)

// ModelFile is the name of the exported model inside ModelPath.
const ModelFile = "tdgammon.bin"

// Trainer owns a model and the resources a training run writes to: the
// checkpoint store and the summary file. Call Close when done.
type Trainer struct {
	cfg   config.Config
	model *neuralnet.Network
	store checkpoint.Store
	log   zerolog.Logger

	summary     zerolog.Logger
	summaryFile *os.File

	dice *engine.Dice
}

// New prepares a training run. It creates the configured directories,
// opens the checkpoint store and summary file, and restores the latest
// checkpoint into model when cfg.Restore is set.
func New(ctx context.Context, cfg config.Config, model *neuralnet.Network, logger zerolog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.ModelPath, cfg.SummaryPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	store, err := checkpoint.Open(cfg.CheckpointBackend, cfg.CheckpointPath, cfg.CheckpointKeep)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}

	if cfg.Restore {
		c, err := store.Latest(ctx)
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
			logger.Info().Str("path", cfg.CheckpointPath).Msg("no checkpoint to restore")
		case err != nil:
			store.Close()
			return nil, fmt.Errorf("loading checkpoint: %w", err)
		default:
			if err := model.UnmarshalBinary(c.Data); err != nil {
				store.Close()
				return nil, fmt.Errorf("restoring checkpoint %d: %w", c.Step, err)
			}
			logger.Info().Int64("step", c.Step).Msg("restored checkpoint")
		}
	}

	name := filepath.Join(cfg.SummaryPath, fmt.Sprintf("%d.jsonl", time.Now().Unix()))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening summary file: %w", err)
	}

	return &Trainer{
		cfg:         cfg,
		model:       model,
		store:       store,
		log:         logger,
		summary:     zerolog.New(f).With().Timestamp().Logger(),
		summaryFile: f,
		dice:        engine.NewDice(cfg.Seed),
	}, nil
}

// Close releases the summary file and checkpoint store.
func (t *Trainer) Close() error {
	return errors.Join(t.summaryFile.Close(), t.store.Close())
}

// Model returns the model being trained.
func (t *Trainer) Model() *neuralnet.Network { return t.model }

// SummaryPath returns the path of the summary file.
func (t *Trainer) SummaryPath() string { return t.summaryFile.Name() }

// Train plays cfg.Episodes self-play games, updating the model after every
// turn, and checkpoints after every game. Every cfg.TestInterval games it
// evaluates against the random baseline. After the last game it runs the
// final evaluation and exports the model to ModelPath.
func (t *Trainer) Train(ctx context.Context) (Report, error) {
	for episode := 0; episode < t.cfg.Episodes; episode++ {
		if episode != 0 && episode%t.cfg.TestInterval == 0 {
			if _, err := t.Test(ctx, t.cfg.TestEpisodes); err != nil {
				return Report{}, err
			}
		}
		if err := t.trainGame(ctx, episode); err != nil {
			return Report{}, err
		}
	}

	report, err := t.Test(ctx, t.cfg.FinalTestEpisodes)
	if err != nil {
		return report, err
	}

	path := filepath.Join(t.cfg.ModelPath, ModelFile)
	if err := t.model.SaveFile(path); err != nil {
		return report, fmt.Errorf("exporting model: %w", err)
	}
	t.log.Info().Str("path", path).Int64("step", t.model.GlobalStep()).Msg("exported model")
	return report, nil
}

// trainGame plays one game of the model against itself.
func (t *Trainer) trainGame(ctx context.Context, episode int) error {
	player := agent.NewLearned(t.model)
	g := engine.NewGame(player, player, t.dice)

	x := g.Features()
	for !g.Finished() {
		if err := g.Step(ctx); err != nil {
			return fmt.Errorf("train game %d: %w", episode, err)
		}
		next := g.Features()
		t.logStep(t.model.TrainStep(x, next))
		x = next
	}

	winner, _ := g.Winner()
	t.logStep(t.model.TrainTerminal(x, g.WinArray()[0]))

	stats := t.model.Stats()
	t.summary.Info().
		Str("kind", "game").
		Int("episode", episode).
		Int64("step", t.model.GlobalStep()).
		Stringer("winner", winner).
		Int("turns", g.Turns()).
		Str("position", positionid.Encode(g.Board(), g.Turn())).
		Float64("game_loss", t.model.GameLoss()).
		Float64("game_loss_ema", stats.GameLoss).
		Send()
	t.model.ResetGame()

	data, err := t.model.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := t.store.Save(ctx, t.model.GlobalStep(), data); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}

	t.log.Info().
		Int("episode", episode).
		Stringer("winner", winner).
		Int("turns", g.Turns()).
		Msg("train game")
	return nil
}

func (t *Trainer) logStep(s neuralnet.Step) {
	stats := t.model.Stats()
	t.summary.Info().
		Str("kind", "step").
		Int64("step", s.GlobalStep).
		Float64("value", s.Value).
		Float64("delta", s.Delta).
		Float64("loss", s.Loss).
		Float64("alpha", s.Alpha).
		Float64("lambda", s.Lambda).
		Float64("delta_ema", stats.Delta).
		Float64("loss_ema", stats.Loss).
		Float64("accuracy_ema", stats.Accuracy).
		Send()
}

// Test evaluates the current model against the random baseline.
func (t *Trainer) Test(ctx context.Context, episodes int) (Report, error) {
	seed := t.cfg.Seed + uint64(t.model.GlobalStep())
	report, err := Evaluate(ctx, t.model, episodes, seed, t.log)
	if err != nil {
		return report, err
	}
	t.summary.Info().
		Str("kind", "test").
		Int64("step", t.model.GlobalStep()).
		Int("episodes", report.Episodes).
		Int("learned", report.LearnedWins).
		Int("random", report.BaselineWins).
		Float64("ratio", report.Ratio).
		Float64("mean_turns", report.MeanTurns).
		Send()
	t.log.Info().
		Int("episodes", report.Episodes).
		Float64("win_rate", report.WinRate()).
		Float64("mean_turns", report.MeanTurns).
		Msg("test finished")
	return report, nil
}

// NewModel creates an untrained network shaped and scheduled by cfg.
func NewModel(cfg config.Config) (*neuralnet.Network, error) {
	model, err := neuralnet.New(engine.InputSize, cfg.Model.Hidden, cfg.Seed)
	if err != nil {
		return nil, err
	}
	model.Schedule = cfg.Model.Schedule()
	return model, nil
}
