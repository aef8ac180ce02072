package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podmix/pkg/fetch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "podmix.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/srv/podmix"
user_agent = "test-agent/1.0"
fetch_delay = "2s"
apply_tags = true

[server]
port = 9090
bind_address = "127.0.0.1"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/podmix", cfg.DataDir)
	assert.Equal(t, "test-agent/1.0", cfg.UserAgent)
	assert.Equal(t, 2*time.Second, cfg.FetchDelay.Duration)
	assert.True(t, cfg.ApplyTags)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.BindAddress)

	// Defaults fill in what the file left out
	assert.Equal(t, filepath.Join("/srv/podmix", "history.json"), cfg.HistoryFile)
	assert.Equal(t, "playlists", cfg.PlaylistDir)
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "history.json"), cfg.HistoryFile)
	assert.Equal(t, fetch.DefaultHostDelay, cfg.FetchDelay.Duration)
	assert.NotEmpty(t, cfg.UserAgent)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 123456
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_BadDelay(t *testing.T) {
	path := writeConfig(t, `fetch_delay = "soon"`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
