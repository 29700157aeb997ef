package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Agent.URL, cfg.Agent.URL)
	assert.Equal(t, "300ms", cfg.Chat.Debounce)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  url: http://agent.internal/stream
  conn_timeout: 5s
chat:
  debounce: 150ms
  requests_per_min: 3
reaper:
  schedule: "@every 1m"
  max_age: 2m
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://agent.internal/stream", cfg.Agent.URL)
	assert.Equal(t, "5s", cfg.Agent.ConnTimeout)
	assert.Equal(t, "150ms", cfg.Chat.Debounce)
	assert.Equal(t, 3, cfg.Chat.RequestsPerMin)
	assert.Equal(t, "2m", cfg.Reaper.MaxAge)
	// Untouched sections keep their defaults.
	assert.Equal(t, "vibedesk.db", cfg.Store.Path)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VIBEDESK_AGENT_URL", "http://override:9999/stream")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://override:9999/stream", cfg.Agent.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadDuration(t *testing.T) {
	cfg := Default()
	cfg.Chat.Debounce = "soon"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Agent.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("garbage", time.Minute))
}
