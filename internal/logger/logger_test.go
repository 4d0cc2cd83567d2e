package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyNameIsWhaaat/bachub/internal/config"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := build(config.Log{Env: "production", Level: "warn"}, &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("key", "images/reply/1/a.png").Msg("blob cleanup failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "bachub", line["service"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "blob cleanup failed", line["message"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := build(config.Log{Env: "production", Level: "loud"}, &buf)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bachub.log")
	var buf bytes.Buffer
	log := build(config.Log{Env: "production", File: path}, &buf)
	log.Info().Msg("to both")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to both")
	assert.Contains(t, buf.String(), "to both")
}
