package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"podmix/pkg/fetch"
)

// Config is the optional application configuration (podmix.toml). Every
// field has a sensible default, so running without a file works too.
type Config struct {
	// DataDir is where the episode cache, catalog and feed records live
	DataDir string `toml:"data_dir"`
	// PlaylistDir is where generated playlists are materialized
	PlaylistDir string `toml:"playlist_dir"`
	// HistoryFile is the listening history location
	HistoryFile string `toml:"history_file"`
	// UserAgent to present on outbound HTTP requests
	UserAgent string `toml:"user_agent"`
	// FetchDelay is the minimum spacing between requests to the same host.
	// Format is "300ms", "1.5h" or "2h45m".
	FetchDelay Duration `toml:"fetch_delay"`
	// ApplyTags re-tags downloaded episodes with title/artist metadata
	// (requires ffmpeg on the PATH)
	ApplyTags bool `toml:"apply_tags"`
	// Server is the web server configuration for the serve command
	Server ServerConfig `toml:"server"`
}

type ServerConfig struct {
	// Port is a server port to listen to
	Port int `toml:"port"`
	// BindAddress is a local address to listen on ("*" for all)
	BindAddress string `toml:"bind_address"`
}

// LoadConfig loads TOML configuration from a file path. A missing file is
// not an error, defaults apply.
func LoadConfig(path string) (*Config, error) {
	config := Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read config file: %s", path)
		}
	} else {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal toml")
		}
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	var result *multierror.Error

	if c.FetchDelay.Duration < 0 {
		result = multierror.Append(result, errors.New("fetch delay must not be negative"))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		result = multierror.Append(result, errors.Errorf("invalid server port: %d", c.Server.Port))
	}

	return result.ErrorOrNil()
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}

	if c.PlaylistDir == "" {
		c.PlaylistDir = "playlists"
	}

	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.DataDir, "history.json")
	}

	if c.UserAgent == "" {
		c.UserAgent = "podmix/" + version
	}

	if c.FetchDelay.Duration == 0 {
		c.FetchDelay.Duration = fetch.DefaultHostDelay
	}
}

// Duration is a toml extension that lets you specify durations in
// human-readable form, like "45s" or "2h15m"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	res, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = res
	return nil
}
