// Package models defines the shared data model for aviary sessions.
package models

import (
	"fmt"
	"time"
)

// SessionStatus is the manager-assigned lifecycle status of a session. It is
// set on create/restart/stop and is independent of whether the agent process
// is actually alive; health classification reconciles the two.
type SessionStatus string

const (
	StatusActive  SessionStatus = "active"
	StatusStopped SessionStatus = "stopped"
)

// TerminalType identifies which terminal backend owns a session's window.
type TerminalType string

const (
	TerminalITerm   TerminalType = "iterm"
	TerminalApp     TerminalType = "terminal"
	TerminalGhostty TerminalType = "ghostty"
	TerminalNative  TerminalType = "native"
)

// PortRange is a reserved, inclusive range of ports for one session. Reserved
// means set aside for the agent's use; nothing guarantees the agent binds them.
type PortRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two ranges share any port.
func (r PortRange) Overlaps(other PortRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// String renders the range as "3000-3009".
func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Session is one tracked agent-in-worktree instance. Instances are immutable
// snapshots of on-disk state; mutation flows through the store's save.
type Session struct {
	ID        string `json:"id"`
	Branch    string `json:"branch"`
	Agent     string `json:"agent"`
	Command   string `json:"command"`
	ProjectID string `json:"project_id"`

	// WorktreePath is exclusively owned by this session. Its absence on disk
	// is a staleness signal for cleanup.
	WorktreePath string `json:"worktree_path"`

	// ProcessID is the discovered agent PID; nil when discovery failed, which
	// is a degraded but valid state. A recorded PID is trusted only together
	// with ProcessName and ProcessStartTime (PID reuse guard).
	ProcessID        *int       `json:"process_id,omitempty"`
	ProcessName      string     `json:"process_name,omitempty"`
	ProcessStartTime *time.Time `json:"process_start_time,omitempty"`

	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity *time.Time    `json:"last_activity,omitempty"`
	Note         string        `json:"note,omitempty"`

	TerminalType TerminalType `json:"terminal_type"`
	// TerminalWindowID is the numeric window id for iTerm/Terminal.app, or a
	// window-title substring for Ghostty.
	TerminalWindowID string `json:"terminal_window_id,omitempty"`

	PortRange PortRange `json:"port_range"`
}

// Validate checks the structural invariants a session file must satisfy
// before it is accepted by the store.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session has no id")
	}
	if s.Branch == "" {
		return fmt.Errorf("session %s has no branch", s.ID)
	}
	if s.WorktreePath == "" {
		return fmt.Errorf("session %s has no worktree path", s.ID)
	}
	switch s.Status {
	case StatusActive, StatusStopped:
	default:
		return fmt.Errorf("session %s has unknown status %q", s.ID, s.Status)
	}
	if s.PortRange.Start > s.PortRange.End {
		return fmt.Errorf("session %s has inverted port range %s", s.ID, s.PortRange)
	}
	return nil
}

// HasProcess reports whether a PID was ever recorded for this session.
func (s *Session) HasProcess() bool {
	return s.ProcessID != nil
}
