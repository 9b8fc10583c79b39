package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", FormatJSON, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Int("episode", 3).Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "shown", entry["message"])
	require.Equal(t, "warn", entry["level"])
	require.EqualValues(t, 3, entry["episode"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", FormatConsole, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hello")
	require.Contains(t, buf.String(), "hello")
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("loud", FormatJSON, &bytes.Buffer{})
	require.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	require.Error(t, err)
}
