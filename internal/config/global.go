package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultServerURL is used when the config file does not name a server.
const DefaultServerURL = "https://api.zaoya.dev"

const defaultRequestTimeout = 15 * time.Second

// GlobalConfig holds user-level preferences stored in ~/.zaoya/config.json.
type GlobalConfig struct {
	ServerURL      string `json:"server_url,omitempty"`
	APIToken       string `json:"api_token,omitempty"`
	DefaultProject string `json:"default_project,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"` // Go duration string, e.g. "30s"
}

// Dir returns the global zaoya config directory (~/.zaoya), creating it if needed.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dir := filepath.Join(home, ".zaoya")
	os.MkdirAll(dir, 0755)
	return dir
}

// configPath returns the full path to ~/.zaoya/config.json.
func configPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads ~/.zaoya/config.json, returning a default config if the file is absent.
func Load() (*GlobalConfig, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}

	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config to ~/.zaoya/config.json.
func Save(cfg *GlobalConfig) error {
	if cfg == nil {
		cfg = &GlobalConfig{}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}

// Server returns the configured server URL, falling back to the default.
func (c *GlobalConfig) Server() string {
	if s := strings.TrimSpace(c.ServerURL); s != "" {
		return strings.TrimRight(s, "/")
	}
	return DefaultServerURL
}

// Timeout returns the configured REST request timeout.
func (c *GlobalConfig) Timeout() time.Duration {
	if strings.TrimSpace(c.RequestTimeout) == "" {
		return defaultRequestTimeout
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}
