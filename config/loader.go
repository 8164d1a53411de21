package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/util/pathutil"
)

// ConfigPath returns the path to config.toml. The AVIARY_CONFIG environment
// variable overrides the default ~/.aviary/config.toml.
func ConfigPath() (string, error) {
	if p := os.Getenv("AVIARY_CONFIG"); p != "" {
		return pathutil.Expand(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeConfigNotFound, "could not determine home directory")
	}
	return filepath.Join(home, ".aviary", "config.toml"), nil
}

// Load reads and decodes the given config file, merged over DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigNotFound, "could not read config file").
			WithDetail("path", path)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "could not parse config file").
			WithDetail("path", path)
	}

	// Capture unknown top-level tables for extensions.
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err == nil {
		for _, known := range []string{"paths", "terminal", "ports", "tracker", "health", "git", "agents"} {
			delete(raw, known)
		}
		if len(raw) > 0 {
			cfg.Extensions = raw
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads the config from the standard location. A missing file is
// not an error: defaults are returned instead.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.Ports.BasePort <= 0 || c.Ports.BasePort > 65535 {
		return errors.ConfigInvalid("ports.base_port must be between 1 and 65535")
	}
	if c.Ports.PortsPerSession <= 0 {
		return errors.ConfigInvalid("ports.ports_per_session must be positive")
	}
	if c.Ports.SearchLimit <= 0 {
		return errors.ConfigInvalid("ports.search_limit must be positive")
	}
	if c.Tracker.MaxAttempts < 1 {
		return errors.ConfigInvalid("tracker.max_attempts must be at least 1")
	}
	if c.Tracker.BaseDelay.Std() < 0 {
		return errors.ConfigInvalid("tracker.base_delay must not be negative")
	}
	if c.Health.IdleThreshold.Std() >= c.Health.StuckThreshold.Std() {
		return errors.ConfigInvalid("health.idle_threshold must be below health.stuck_threshold")
	}
	switch c.Terminal.Preferred {
	case "iterm", "terminal", "ghostty", "native":
	default:
		return errors.ConfigInvalid("terminal.preferred must be one of: iterm, terminal, ghostty, native")
	}
	return nil
}

// SessionsDir returns the expanded sessions directory path.
func (c *Config) SessionsDir() (string, error) {
	return pathutil.Expand(c.Paths.SessionsDir)
}

// WorktreeRoot returns the expanded worktree root path.
func (c *Config) WorktreeRoot() (string, error) {
	return pathutil.Expand(c.Paths.WorktreeRoot)
}
