package hook

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultServer  = "ws://localhost:8765/ws/hook"
	defaultTimeout = 3600 // seconds
)

// Config controls the agent-side hook. Values come from the config
// file, overridden by environment variables, overridden by flags.
type Config struct {
	Enabled        bool   `yaml:"enabled"`
	Server         string `yaml:"server"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns the built-in defaults: enabled, local hub,
// one-hour wait.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		Server:         defaultServer,
		TimeoutSeconds: defaultTimeout,
	}
}

// ConfigPath returns the per-user config file location.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "afk", "config.yaml")
}

// LoadConfig reads path (ConfigPath() when empty) and applies
// environment overrides. A missing file is not an error; defaults
// apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeout
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AFK_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v := os.Getenv("AFK_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("AFK_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSeconds = n
		}
	}
}

// Timeout returns the configured wait as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
