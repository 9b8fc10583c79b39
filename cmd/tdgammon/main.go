// tdgammon - a backgammon player that learns by self-play with TD(λ)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/tdgammon/internal/config"
	"github.com/yourusername/tdgammon/internal/logging"
	"github.com/yourusername/tdgammon/internal/neuralnet"
	"github.com/yourusername/tdgammon/pkg/agent"
	"github.com/yourusername/tdgammon/pkg/api"
	"github.com/yourusername/tdgammon/pkg/engine"
	"github.com/yourusername/tdgammon/pkg/external"
	"github.com/yourusername/tdgammon/pkg/match"
	"github.com/yourusername/tdgammon/pkg/trainer"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "train":
		err = cmdTrain(ctx, args)
	case "test":
		err = cmdTest(ctx, args)
	case "play":
		err = cmdPlay(ctx, args)
	case "serve":
		err = cmdServe(ctx, args)
	case "replay":
		err = cmdReplay(args)
	case "version":
		fmt.Printf("tdgammon v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Str("command", command).Msg("failed")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tdgammon - TD(lambda) backgammon

Usage: tdgammon <command> [options]

Commands:
  train     Train the model by self-play
  test      Play the trained model against a random player
  play      Play against the trained model in the terminal
  serve     Run the HTTP/WebSocket API
  replay    Check a recorded game (.mat or .sgf) against the rules
  version   Show version

Use "tdgammon <command> -h" for command-specific help.

Configuration is read from -config (YAML), then MODEL_PATH,
CHECKPOINT_PATH, SUMMARY_PATH and TDG_* environment variables, then flags.`)
}

// options are the flags shared by every command. Only flags given on the
// command line override the loaded configuration.
type options struct {
	fs         *flag.FlagSet
	configFile string
	modelPath  string
	seed       uint64
	logLevel   string
	logFormat  string
}

func newOptions(name string) *options {
	o := &options{fs: flag.NewFlagSet(name, flag.ExitOnError)}
	o.fs.StringVar(&o.configFile, "config", "", "YAML configuration file")
	o.fs.StringVar(&o.modelPath, "model-path", "", "Directory of the exported model")
	o.fs.Uint64Var(&o.seed, "seed", 0, "Random seed")
	o.fs.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	o.fs.StringVar(&o.logFormat, "log-format", "", "Log format (console, json)")
	return o
}

// load parses args, builds the configuration and installs the logger.
// override applies command specific flags that were set.
func (o *options) load(args []string, override func(cfg *config.Config, name string)) (config.Config, zerolog.Logger, error) {
	o.fs.Parse(args)

	cfg, err := config.Load(o.configFile)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model-path":
			cfg.ModelPath = o.modelPath
		case "seed":
			cfg.Seed = o.seed
		case "log-level":
			cfg.LogLevel = o.logLevel
		case "log-format":
			cfg.LogFormat = o.logFormat
		default:
			if override != nil {
				override(&cfg, f.Name)
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		return cfg, zerolog.Nop(), err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	log.Logger = logger
	return cfg, logger, nil
}

func modelFile(cfg config.Config) string {
	return filepath.Join(cfg.ModelPath, trainer.ModelFile)
}

func cmdTrain(ctx context.Context, args []string) error {
	o := newOptions("train")
	episodes := o.fs.Int("episodes", 0, "Number of self-play games")
	testInterval := o.fs.Int("test-interval", 0, "Games between evaluations")
	restore := o.fs.Bool("restore", false, "Resume from the latest checkpoint")
	backend := o.fs.String("checkpoint-backend", "", "Checkpoint store (file, sqlite)")

	cfg, logger, err := o.load(args, func(cfg *config.Config, name string) {
		switch name {
		case "episodes":
			cfg.Episodes = *episodes
		case "test-interval":
			cfg.TestInterval = *testInterval
		case "restore":
			cfg.Restore = *restore
		case "checkpoint-backend":
			cfg.CheckpointBackend = *backend
		}
	})
	if err != nil {
		return err
	}

	model, err := trainer.NewModel(cfg)
	if err != nil {
		return err
	}
	t, err := trainer.New(ctx, cfg, model, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	report, err := t.Train(ctx)
	if cerr := t.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Printf("Trained %d games in %v (global step %d)\n", cfg.Episodes, time.Since(start).Round(time.Second), t.Model().GlobalStep())
	printReport(report)
	fmt.Printf("Summary: %s\n", t.SummaryPath())
	return nil
}

func cmdTest(ctx context.Context, args []string) error {
	o := newOptions("test")
	episodes := o.fs.Int("episodes", 0, "Number of test games (default final_test_episodes)")

	cfg, logger, err := o.load(args, nil)
	if err != nil {
		return err
	}
	n := cfg.FinalTestEpisodes
	if *episodes > 0 {
		n = *episodes
	}

	model, err := neuralnet.LoadFile(modelFile(cfg))
	if err != nil {
		return err
	}
	report, err := trainer.Evaluate(ctx, model, n, cfg.Seed, logger)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func printReport(r trainer.Report) {
	fmt.Printf("TD-Gammon wins: %d  Random wins: %d  Ratio: %.3f  Win rate: %.1f%%  Mean turns: %.1f\n",
		r.LearnedWins, r.BaselineWins, r.Ratio, 100*r.WinRate(), r.MeanTurns)
}

func cmdPlay(ctx context.Context, args []string) error {
	o := newOptions("play")
	sideName := o.fs.String("side", "white", "Your colour (white, black)")
	recordFile := o.fs.String("record", "", "Save the game to this .mat or .sgf file")

	cfg, _, err := o.load(args, nil)
	if err != nil {
		return err
	}
	side, err := engine.ParseSide(*sideName)
	if err != nil {
		return err
	}

	model, err := neuralnet.LoadFile(modelFile(cfg))
	if err != nil {
		return err
	}

	var human engine.Agent = agent.NewHuman(os.Stdin, os.Stdout)
	var computer engine.Agent = agent.NewLearned(model)
	white, black := human, computer
	if side == engine.Black {
		white, black = computer, human
	}

	g := engine.NewGame(white, black, engine.NewDice(cfg.Seed))
	rec, err := match.Record(ctx, g, 1)
	if err != nil {
		return err
	}
	if *recordFile != "" {
		m := match.NewMatch("TD-Gammon", "You")
		if side == engine.White {
			m.White, m.Black = "You", "TD-Gammon"
		}
		m.Date = time.Now().Format(time.DateOnly)
		m.Games = append(m.Games, rec)
		if err := writeRecord(*recordFile, m); err != nil {
			return err
		}
	}

	fmt.Println(g.Board())
	if rec.Winner == side {
		fmt.Printf("You won in %d turns!\n", g.Turns())
	} else {
		fmt.Printf("TD-Gammon won in %d turns.\n", g.Turns())
	}
	return nil
}

func writeRecord(path string, m *match.Match) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".sgf") {
		err = match.ExportSGF(f, m)
	} else {
		err = match.ExportMAT(f, m)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func cmdReplay(args []string) error {
	flags := flag.NewFlagSet("replay", flag.ExitOnError)
	file := flags.String("file", "", "Game record (.mat or .sgf)")
	flags.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: file required")
		fmt.Fprintln(os.Stderr, "Usage: tdgammon replay -file <game.mat>")
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	var m *match.Match
	if strings.EqualFold(filepath.Ext(*file), ".sgf") {
		m, err = match.ImportSGF(f)
	} else {
		m, err = match.ImportMAT(f)
	}
	if err != nil {
		return err
	}

	for _, g := range m.Games {
		board, err := g.Replay()
		if err != nil {
			return fmt.Errorf("game %d: %w", g.Number, err)
		}
		fmt.Printf("Game %d: %d turns, legal", g.Number, len(g.Turns))
		if w, ok := board.Winner(); ok {
			fmt.Printf(", %s wins", w)
		}
		fmt.Println()
	}
	return nil
}

func cmdServe(ctx context.Context, args []string) error {
	o := newOptions("serve")
	host := o.fs.String("host", "", "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := o.fs.Int("port", 0, "Port to listen on")
	externalPort := o.fs.Int("external-port", 0, "Port for the gnubg external player protocol (0 = off)")

	cfg, logger, err := o.load(args, func(cfg *config.Config, name string) {
		switch name {
		case "host":
			cfg.Server.Host = *host
		case "port":
			cfg.Server.Port = *port
		case "external-port":
			cfg.Server.ExternalPort = *externalPort
		}
	})
	if err != nil {
		return err
	}

	// The API still serves move generation without a trained model.
	var model agent.Evaluator
	path := modelFile(cfg)
	switch loaded, err := neuralnet.LoadFile(path); {
	case err == nil:
		model = loaded
		logger.Info().Str("path", path).Int64("step", loaded.GlobalStep()).Msg("model loaded")
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn().Str("path", path).Msg("no model found, evaluation and play are disabled")
	default:
		return err
	}

	if cfg.Server.ExternalPort != 0 && model == nil {
		return errors.New("the external player needs a trained model")
	}

	serverCfg := api.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.MaxSessions = cfg.Server.MaxSessions
	serverCfg.Seed = cfg.Seed
	server := api.NewServer(model, serverCfg, version, logger)
	logger.Info().
		Str("addr", cfg.Server.Addr()).
		Int("max_sessions", cfg.Server.MaxSessions).
		Bool("model", model != nil).
		Msg("serving")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	if cfg.Server.ExternalPort != 0 {
		opts := external.DefaultServerOptions()
		opts.Host = cfg.Server.Host
		opts.Port = cfg.Server.ExternalPort
		ext := external.NewServer(model, opts, logger)
		g.Go(func() error {
			return ext.ListenAndServe(ctx)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				stats := server.Pool().Stats()
				logger.Debug().
					Int64("active_requests", stats.ActiveRequests).
					Int64("active_sessions", stats.ActiveSessions).
					Int64("total_sessions", stats.TotalSessions).
					Msg("pool")
			}
		}
	})
	return g.Wait()
}
