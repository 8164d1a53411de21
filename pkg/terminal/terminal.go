// Package terminal spawns, closes, and focuses terminal windows across the
// supported macOS emulators. All OS automation side effects live behind the
// Backend interface so session and port logic stays unit-testable.
package terminal

import (
	"context"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/pkg/models"
	"github.com/grovetools/aviary/pkg/proc"
)

// SpawnResult is what a backend reports after opening a window. WindowID is a
// numeric id for iTerm/Terminal.app and a window-title substring for Ghostty.
// PID is only known for backends that exec the agent directly.
type SpawnResult struct {
	WindowID string
	PID      *int
}

// Backend is the capability contract every emulator implements. A failed
// CloseWindow never blocks session destruction; a failed FocusWindow is
// reported but not retried.
type Backend interface {
	Type() models.TerminalType
	Spawn(ctx context.Context, dir, command, title string) (*SpawnResult, error)
	CloseWindow(ctx context.Context, windowID string) error
	FocusWindow(ctx context.Context, windowID string) error
}

// New returns the backend for a terminal type. The "native" type must be
// resolved to a concrete emulator with Resolve before calling New.
func New(t models.TerminalType, runner Runner, table proc.Table) (Backend, error) {
	switch t {
	case models.TerminalITerm:
		return NewITermBackend(runner), nil
	case models.TerminalApp:
		return NewTerminalAppBackend(runner), nil
	case models.TerminalGhostty:
		return NewGhosttyBackend(runner, table), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown terminal type: "+string(t))
	}
}

// Resolve maps a configured terminal preference to a concrete emulator.
// "native" picks the first detected running emulator and falls back to
// Terminal.app, which macOS can always launch.
func Resolve(preferred models.TerminalType, runner Runner) models.TerminalType {
	if preferred != models.TerminalNative {
		return preferred
	}

	for _, candidate := range []struct {
		appName string
		t       models.TerminalType
	}{
		{"iTerm2", models.TerminalITerm},
		{"ghostty", models.TerminalGhostty},
		{"Terminal", models.TerminalApp},
	} {
		if runner.IsAppRunning(context.Background(), candidate.appName) {
			return candidate.t
		}
	}

	return models.TerminalApp
}
