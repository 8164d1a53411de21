package terminal

import (
	"context"
	"fmt"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/pkg/models"
	"github.com/grovetools/aviary/pkg/proc"
)

// ghosttyProcessName is the image name Ghostty runs under.
const ghosttyProcessName = "ghostty"

// GhosttyBackend automates Ghostty. Ghostty exposes no scripting dictionary
// and no numeric window ids, so the window id is a title substring: spawn
// sets a unique title, close matches the spawned process, and focus raises
// the window by title through the accessibility API.
type GhosttyBackend struct {
	runner Runner
	table  proc.Table
}

var _ Backend = (*GhosttyBackend)(nil)

// NewGhosttyBackend creates a Ghostty backend over the given runner and
// process table.
func NewGhosttyBackend(runner Runner, table proc.Table) *GhosttyBackend {
	return &GhosttyBackend{runner: runner, table: table}
}

// Type returns the terminal type.
func (b *GhosttyBackend) Type() models.TerminalType {
	return models.TerminalGhostty
}

// Spawn launches a Ghostty window by direct process execution. The command
// reaches Ghostty as an argv list with no shell in between, so nothing in the
// command can be mangled by quoting. Tokenization honors shell-style quoting,
// so quoted arguments in the resolved command survive as single argv entries.
// The window id is the title substring.
func (b *GhosttyBackend) Spawn(ctx context.Context, dir, command, title string) (*SpawnResult, error) {
	words, err := shellwords.Parse(command)
	if err != nil {
		return nil, errors.SpawnFailed("ghostty", fmt.Errorf("cannot tokenize command %q: %w", command, err), "")
	}

	args := []string{
		"--title=" + title,
		"--working-directory=" + dir,
		"-e",
	}
	args = append(args, words...)

	pid, err := b.runner.StartDetached(ctx, dir, nil, ghosttyProcessName, args...)
	if err != nil {
		return nil, errors.SpawnFailed("ghostty", err, "")
	}

	return &SpawnResult{WindowID: title, PID: &pid}, nil
}

// CloseWindow terminates the Ghostty process whose command line carries the
// window's title. Title-based process matching is the only handle Ghostty
// gives us back.
func (b *GhosttyBackend) CloseWindow(ctx context.Context, windowID string) error {
	infos, err := b.table.List(ctx)
	if err != nil {
		return errors.CloseFailed("ghostty", windowID, err, "")
	}

	for i := range infos {
		info := &infos[i]
		if !strings.Contains(info.Name, ghosttyProcessName) {
			continue
		}
		if !strings.Contains(info.Cmdline, windowID) {
			continue
		}
		if err := b.runner.Terminate(info.PID); err != nil {
			return errors.CloseFailed("ghostty", windowID, err, "")
		}
		return nil
	}

	// The window is already gone; closing an absent window is success,
	// matching the numeric-id backends.
	return nil
}

// FocusWindow raises the window whose title contains windowID via the
// accessibility API, since Ghostty has no scripting dictionary of its own.
func (b *GhosttyBackend) FocusWindow(ctx context.Context, windowID string) error {
	script := fmt.Sprintf(`tell application "System Events"
	tell process "Ghostty"
		set frontmost to true
		repeat with w in windows
			if name of w contains "%s" then
				perform action "AXRaise" of w
				return "ok"
			end if
		end repeat
	end tell
end tell
return "not found"`, escapeAppleScript(windowID))

	output, err := b.runner.RunScript(ctx, script)
	if err != nil {
		return errors.FocusFailed("ghostty", windowID, err, output)
	}
	if output == "not found" {
		return errors.FocusFailed("ghostty", windowID, fmt.Errorf("no window with matching title"), output)
	}
	return nil
}
