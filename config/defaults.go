package config

import (
	"time"
)

// DefaultConfig returns the configuration used when config.toml is absent.
// A loaded file is merged over these values.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			SessionsDir:  "~/.aviary/sessions",
			WorktreeRoot: "~/.aviary/worktrees",
		},
		Terminal: TerminalConfig{
			Preferred:  "native",
			SpawnDelay: Duration(1 * time.Second),
		},
		Ports: PortsConfig{
			BasePort:        3000,
			PortsPerSession: 10,
			SearchLimit:     100,
		},
		Tracker: TrackerConfig{
			MaxAttempts: 5,
			BaseDelay:   Duration(500 * time.Millisecond),
		},
		Health: HealthConfig{
			IdleThreshold:  Duration(10 * time.Minute),
			StuckThreshold: Duration(30 * time.Minute),
		},
		Git: GitConfig{
			BranchPrefix: "agent/",
		},
		Agents: map[string]AgentConfig{
			"claude-code": {Command: "claude", Aliases: []string{"claude"}},
			"codex":       {Command: "codex"},
			"gemini":      {Command: "gemini"},
			"aider":       {Command: "aider"},
		},
	}
}

// ResolveAgentCommand returns the shell command for an agent name. Unknown
// agents fall back to the bare name so any executable on PATH can be used.
func (c *Config) ResolveAgentCommand(agent string) string {
	if ac, ok := c.Agents[agent]; ok && ac.Command != "" {
		return ac.Command
	}
	return agent
}

// AgentAliases returns configured alias substrings for an agent name.
func (c *Config) AgentAliases(agent string) []string {
	if ac, ok := c.Agents[agent]; ok {
		return ac.Aliases
	}
	return nil
}
