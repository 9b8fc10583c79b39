package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tdgammon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "models/", cfg.ModelPath)
	require.Equal(t, "checkpoints/", cfg.CheckpointPath)
	require.Equal(t, "logs/", cfg.SummaryPath)
	require.Equal(t, 1, cfg.CheckpointKeep)
	require.Equal(t, 40, cfg.Model.Hidden)
	require.Equal(t, 0.1, cfg.Model.Alpha)
	require.Equal(t, 0.9, cfg.Model.Lambda)
	require.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, `
model_path: out/models
episodes: 50
checkpoint_backend: sqlite
model:
  hidden: 80
  alpha: 0.05
server:
  port: 9090
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "out/models", cfg.ModelPath)
	require.Equal(t, 50, cfg.Episodes)
	require.Equal(t, "sqlite", cfg.CheckpointBackend)
	require.Equal(t, 80, cfg.Model.Hidden)
	require.Equal(t, 0.05, cfg.Model.Alpha)
	// Unset keys keep their defaults
	require.Equal(t, 0.9, cfg.Model.Lambda)
	require.Equal(t, "localhost", cfg.Server.Host)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadEmptyYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "\n"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeFile(t, "episodez: 5\n"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "episodes: 50\nmodel_path: from-file\n")
	t.Setenv("MODEL_PATH", "from-env")
	t.Setenv("CHECKPOINT_PATH", "ckpt-env")
	t.Setenv("TDG_EPISODES", "7")
	t.Setenv("TDG_HIDDEN", "12")
	t.Setenv("TDG_SERVER_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.ModelPath)
	require.Equal(t, "ckpt-env", cfg.CheckpointPath)
	require.Equal(t, 7, cfg.Episodes)
	require.Equal(t, 12, cfg.Model.Hidden)
	require.Equal(t, 7000, cfg.Server.Port)
}

func TestEnvParseError(t *testing.T) {
	t.Setenv("TDG_EPISODES", "many")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model path", func(c *Config) { c.ModelPath = "" }},
		{"unknown backend", func(c *Config) { c.CheckpointBackend = "s3" }},
		{"keep zero", func(c *Config) { c.CheckpointKeep = 0 }},
		{"negative episodes", func(c *Config) { c.Episodes = -1 }},
		{"zero test interval", func(c *Config) { c.TestInterval = 0 }},
		{"no hidden units", func(c *Config) { c.Model.Hidden = 0 }},
		{"lambda above one", func(c *Config) { c.Model.Lambda = 1.5 }},
		{"zero decay rate", func(c *Config) { c.Model.DecayRate = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"external port out of range", func(c *Config) { c.Server.ExternalPort = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestModelSchedule(t *testing.T) {
	m := Default().Model
	s := m.Schedule()
	require.Equal(t, m.Alpha, s.Alpha)
	require.Equal(t, m.Lambda, s.Lambda)
	require.Equal(t, m.DecayRate, s.Rate)
	require.Equal(t, m.DecaySteps, s.Steps)
}
