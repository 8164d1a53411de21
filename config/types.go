package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Duration wraps time.Duration so it can be written as a human-readable
// string ("500ms", "10m") in config.toml.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// PathsConfig locates the on-disk state aviary manages.
type PathsConfig struct {
	// SessionsDir is the directory holding one JSON file per session.
	SessionsDir string `toml:"sessions_dir"`
	// WorktreeRoot is where new worktrees are created, under <root>/<project>/<branch>.
	WorktreeRoot string `toml:"worktree_root"`
}

// TerminalConfig selects and tunes the terminal backend.
type TerminalConfig struct {
	// Preferred is the emulator to use: "iterm", "terminal", "ghostty", or
	// "native" (detect a running emulator, falling back to the platform default).
	Preferred string `toml:"preferred"`
	// SpawnDelay is how long to wait after spawning a window before the
	// process tracker starts looking for the agent.
	SpawnDelay Duration `toml:"spawn_delay"`
}

// PortsConfig tunes port range allocation.
type PortsConfig struct {
	BasePort        int `toml:"base_port"`
	PortsPerSession int `toml:"ports_per_session"`
	// SearchLimit bounds the forward search: at most this many candidate
	// windows are examined before allocation fails.
	SearchLimit int `toml:"search_limit"`
}

// TrackerConfig tunes process discovery retries.
type TrackerConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseDelay   Duration `toml:"base_delay"`
}

// HealthConfig holds the activity thresholds for health classification.
type HealthConfig struct {
	IdleThreshold  Duration `toml:"idle_threshold"`
	StuckThreshold Duration `toml:"stuck_threshold"`
}

// GitConfig holds git-related conventions.
type GitConfig struct {
	// BranchPrefix is the naming-convention prefix for agent branches,
	// used by orphan detection to recognize aviary-created branches.
	BranchPrefix string `toml:"branch_prefix"`
}

// AgentConfig describes one runnable agent.
type AgentConfig struct {
	// Command is the shell command to launch the agent. Empty means the
	// agent name itself.
	Command string `toml:"command"`
	// Aliases are extra process-name substrings the tracker should accept
	// when looking for this agent in the process table.
	Aliases []string `toml:"aliases"`
}

// Config is the root configuration, an immutable per-invocation snapshot.
type Config struct {
	Paths    PathsConfig            `toml:"paths"`
	Terminal TerminalConfig         `toml:"terminal"`
	Ports    PortsConfig            `toml:"ports"`
	Tracker  TrackerConfig          `toml:"tracker"`
	Health   HealthConfig           `toml:"health"`
	Git      GitConfig              `toml:"git"`
	Agents   map[string]AgentConfig `toml:"agents"`

	// Extensions captures top-level keys not claimed by the fields above,
	// so other tools can piggyback on config.toml.
	Extensions map[string]interface{} `toml:"-"`
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded config.toml into the provided target struct. The target must be a
// pointer. Missing keys are not an error; the target stays zero-valued.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "toml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
