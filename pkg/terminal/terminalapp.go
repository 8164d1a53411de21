package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/pkg/models"
)

// TerminalAppBackend automates the built-in macOS Terminal.app. A single
// "do script" directive implicitly reuses-or-creates a window, so unlike
// iTerm2 no cold-launch window guard is needed.
type TerminalAppBackend struct {
	runner Runner
}

var _ Backend = (*TerminalAppBackend)(nil)

// NewTerminalAppBackend creates a Terminal.app backend over the given runner.
func NewTerminalAppBackend(runner Runner) *TerminalAppBackend {
	return &TerminalAppBackend{runner: runner}
}

// Type returns the terminal type.
func (b *TerminalAppBackend) Type() models.TerminalType {
	return models.TerminalApp
}

// Spawn runs the command in a window and returns the numeric window id.
func (b *TerminalAppBackend) Spawn(ctx context.Context, dir, command, title string) (*SpawnResult, error) {
	shellLine := escapeAppleScript(fmt.Sprintf("cd %s && %s", shellQuote(dir), command))
	script := fmt.Sprintf(`tell application "Terminal"
	activate
	do script "%s"
	set custom title of front window to "%s"
	return id of front window
end tell`, shellLine, escapeAppleScript(title))

	output, err := b.runner.RunScript(ctx, script)
	if err != nil {
		return nil, errors.SpawnFailed("terminal", err, output)
	}

	windowID := strings.TrimSpace(output)
	if windowID == "" {
		return nil, errors.SpawnFailed("terminal", fmt.Errorf("no window id returned"), output)
	}

	return &SpawnResult{WindowID: windowID}, nil
}

// CloseWindow closes the window by numeric id.
func (b *TerminalAppBackend) CloseWindow(ctx context.Context, windowID string) error {
	script := fmt.Sprintf(`tell application "Terminal"
	close (every window whose id is %s)
end tell`, windowID)

	output, err := b.runner.RunScript(ctx, script)
	if err != nil {
		return errors.CloseFailed("terminal", windowID, err, output)
	}
	return nil
}

// FocusWindow fronts the window by numeric id.
func (b *TerminalAppBackend) FocusWindow(ctx context.Context, windowID string) error {
	script := fmt.Sprintf(`tell application "Terminal"
	activate
	set index of (first window whose id is %s) to 1
end tell`, windowID)

	output, err := b.runner.RunScript(ctx, script)
	if err != nil {
		return errors.FocusFailed("terminal", windowID, err, output)
	}
	return nil
}
