// Package config holds the settings for training, evaluation and serving.
//
// Settings start from Default, are overlaid by an optional YAML file, then
// by environment variables, and are checked by Validate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/tdgammon/internal/checkpoint"
	"github.com/yourusername/tdgammon/internal/neuralnet"
)

// Config is the full configuration of a run.
type Config struct {
	// Directories for the exported model, checkpoints and training summaries
	ModelPath      string `yaml:"model_path" env:"MODEL_PATH"`
	CheckpointPath string `yaml:"checkpoint_path" env:"CHECKPOINT_PATH"`
	SummaryPath    string `yaml:"summary_path" env:"SUMMARY_PATH"`

	CheckpointBackend string `yaml:"checkpoint_backend" env:"TDG_CHECKPOINT_BACKEND"`
	CheckpointKeep    int    `yaml:"checkpoint_keep" env:"TDG_CHECKPOINT_KEEP"`
	Restore           bool   `yaml:"restore" env:"TDG_RESTORE"`

	Episodes          int    `yaml:"episodes" env:"TDG_EPISODES"`
	TestInterval      int    `yaml:"test_interval" env:"TDG_TEST_INTERVAL"`
	TestEpisodes      int    `yaml:"test_episodes" env:"TDG_TEST_EPISODES"`
	FinalTestEpisodes int    `yaml:"final_test_episodes" env:"TDG_FINAL_TEST_EPISODES"`
	Seed              uint64 `yaml:"seed" env:"TDG_SEED"`

	Model Model `yaml:"model" envPrefix:"TDG_"`

	LogLevel  string `yaml:"log_level" env:"TDG_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"TDG_LOG_FORMAT"`

	Server Server `yaml:"server" envPrefix:"TDG_SERVER_"`
}

// Model holds the network shape and learning schedule.
type Model struct {
	Hidden     int     `yaml:"hidden" env:"HIDDEN"`
	Alpha      float64 `yaml:"alpha" env:"ALPHA"`
	Lambda     float64 `yaml:"lambda" env:"LAMBDA"`
	DecayRate  float64 `yaml:"decay_rate" env:"DECAY_RATE"`
	DecaySteps int64   `yaml:"decay_steps" env:"DECAY_STEPS"`
}

// Schedule returns the model's learning schedule.
func (m Model) Schedule() neuralnet.Schedule {
	return neuralnet.Schedule{
		Alpha:  m.Alpha,
		Lambda: m.Lambda,
		Rate:   m.DecayRate,
		Steps:  m.DecaySteps,
	}
}

// Server holds the API server settings.
type Server struct {
	Host        string `yaml:"host" env:"HOST"`
	Port        int    `yaml:"port" env:"PORT"`
	MaxSessions int    `yaml:"max_sessions" env:"MAX_SESSIONS"`

	// ExternalPort serves the gnubg external player protocol; 0 disables it.
	ExternalPort int `yaml:"external_port" env:"EXTERNAL_PORT"`
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the built-in configuration.
func Default() Config {
	sched := neuralnet.DefaultSchedule()
	return Config{
		ModelPath:         "models/",
		CheckpointPath:    "checkpoints/",
		SummaryPath:       "logs/",
		CheckpointBackend: checkpoint.BackendFile,
		CheckpointKeep:    1,
		Episodes:          1000,
		TestInterval:      1000,
		TestEpisodes:      100,
		FinalTestEpisodes: 1000,
		Seed:              1,
		Model: Model{
			Hidden:     neuralnet.DefaultHidden,
			Alpha:      sched.Alpha,
			Lambda:     sched.Lambda,
			DecayRate:  sched.Rate,
			DecaySteps: sched.Steps,
		},
		LogLevel:  "info",
		LogFormat: "console",
		Server: Server{
			Host:        "localhost",
			Port:        8080,
			MaxSessions: 16,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("opening config file: %w", err)
		}
		defer f.Close()
		if err := cfg.decodeYAML(f); err != nil {
			return cfg, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeYAML overlays the document in r onto c. Unknown keys are errors.
func (c *Config) decodeYAML(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model_path is required"))
	}
	if c.CheckpointPath == "" {
		errs = append(errs, errors.New("checkpoint_path is required"))
	}
	if c.SummaryPath == "" {
		errs = append(errs, errors.New("summary_path is required"))
	}
	switch c.CheckpointBackend {
	case checkpoint.BackendFile, checkpoint.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint_backend %q", c.CheckpointBackend))
	}
	if c.CheckpointKeep < 1 {
		errs = append(errs, errors.New("checkpoint_keep must be at least 1"))
	}
	if c.Episodes < 0 {
		errs = append(errs, errors.New("episodes must not be negative"))
	}
	if c.TestInterval < 1 {
		errs = append(errs, errors.New("test_interval must be at least 1"))
	}
	if c.TestEpisodes < 0 || c.FinalTestEpisodes < 0 {
		errs = append(errs, errors.New("test episode counts must not be negative"))
	}
	if c.Model.Hidden < 1 {
		errs = append(errs, errors.New("model.hidden must be at least 1"))
	}
	if c.Model.Alpha <= 0 {
		errs = append(errs, errors.New("model.alpha must be positive"))
	}
	if c.Model.Lambda < 0 || c.Model.Lambda > 1 {
		errs = append(errs, errors.New("model.lambda must be in [0, 1]"))
	}
	if c.Model.DecayRate <= 0 || c.Model.DecayRate > 1 {
		errs = append(errs, errors.New("model.decay_rate must be in (0, 1]"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ExternalPort < 0 || c.Server.ExternalPort > 65535 {
		errs = append(errs, fmt.Errorf("server.external_port %d out of range", c.Server.ExternalPort))
	}
	if c.Server.MaxSessions < 1 {
		errs = append(errs, errors.New("server.max_sessions must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
