package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/pkg/models"
)

// ITermBackend automates iTerm2. Window ids are numeric and stable for the
// life of the window.
type ITermBackend struct {
	runner Runner
}

var _ Backend = (*ITermBackend)(nil)

// NewITermBackend creates an iTerm2 backend over the given runner.
func NewITermBackend(runner Runner) *ITermBackend {
	return &ITermBackend{runner: runner}
}

// Type returns the terminal type.
func (b *ITermBackend) Type() models.TerminalType {
	return models.TerminalITerm
}

// Spawn opens a window running the command in dir and returns its numeric id.
// Activating a cold iTerm2 auto-creates a default window, and that window is
// reused rather than stacking a redundant empty one next to it. Reuse has to
// be decided before activate runs: afterwards the window count cannot tell an
// auto-created window from a pre-existing one.
func (b *ITermBackend) Spawn(ctx context.Context, dir, command, title string) (*SpawnResult, error) {
	windowClause := "set targetWindow to current window"
	if b.runner.IsAppRunning(ctx, "iTerm2") {
		windowClause = "set targetWindow to (create window with default profile)"
	}

	shellLine := escapeAppleScript(fmt.Sprintf("cd %s && %s", shellQuote(dir), command))
	script := fmt.Sprintf(`tell application "iTerm2"
	activate
	%s
	tell current session of targetWindow
		write text "%s"
		set name to "%s"
	end tell
	return id of targetWindow
end tell`, windowClause, shellLine, escapeAppleScript(title))

	output, err := b.runner.RunScript(ctx, script)
	if err != nil {
		return nil, errors.SpawnFailed("iterm", err, output)
	}

	windowID := strings.TrimSpace(output)
	if windowID == "" {
		return nil, errors.SpawnFailed("iterm", fmt.Errorf("no window id returned"), output)
	}

	return &SpawnResult{WindowID: windowID}, nil
}

// CloseWindow closes the window by numeric id.
func (b *ITermBackend) CloseWindow(ctx context.Context, windowID string) error {
	script := fmt.Sprintf(`tell application "iTerm2"
	close (every window whose id is %s)
end tell`, windowID)

	output, err := b.runner.RunScript(ctx, script)
	if err != nil {
		return errors.CloseFailed("iterm", windowID, err, output)
	}
	return nil
}

// FocusWindow fronts the window by numeric id.
func (b *ITermBackend) FocusWindow(ctx context.Context, windowID string) error {
	script := fmt.Sprintf(`tell application "iTerm2"
	activate
	select (first window whose id is %s)
end tell`, windowID)

	output, err := b.runner.RunScript(ctx, script)
	if err != nil {
		return errors.FocusFailed("iterm", windowID, err, output)
	}
	return nil
}

// escapeAppleScript escapes a string for embedding in a double-quoted
// AppleScript literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// shellQuote single-quotes a path for the shell line sent into the terminal.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
