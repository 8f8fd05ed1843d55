// Package config layers client settings: defaults, then an optional JSON
// config file in the state directory, then environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const configFileName = "config.json"

// Config holds runtime settings for the companion client.
type Config struct {
	APIBaseURL   string        `json:"api_base_url"`
	StateDir     string        `json:"state_dir"`
	PollInterval time.Duration `json:"-"`
	Debug        bool          `json:"debug"`

	// PollIntervalSeconds is the serialized form of PollInterval.
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"`
}

// LoadDefaults populates sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://api.collabiora.org"
	c.PollInterval = 15 * time.Second
	if home, err := os.UserHomeDir(); err == nil {
		c.StateDir = filepath.Join(home, ".config", "collabiora")
	}
}

// Load builds a Config from defaults, the JSON file under the state dir,
// and finally environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if dir := os.Getenv("COLLABIORA_STATE_DIR"); dir != "" {
		cfg.StateDir = dir
	}
	if err := cfg.overlayFile(); err != nil {
		return nil, err
	}
	cfg.overlayEnv()

	if cfg.PollIntervalSeconds > 0 {
		cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	return cfg, nil
}

func (c *Config) overlayFile() error {
	if c.StateDir == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(c.StateDir, configFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, c)
}

func (c *Config) overlayEnv() {
	if v := os.Getenv("COLLABIORA_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("COLLABIORA_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("COLLABIORA_POLL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.PollInterval = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("COLLABIORA_DEBUG"); v == "1" || v == "true" {
		c.Debug = true
	}
}
