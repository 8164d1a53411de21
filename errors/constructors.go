package errors

import (
	"fmt"
	"os/exec"
)

// InvalidBranch creates a branch validation error
func InvalidBranch(branch, reason string) *AviaryError {
	return New(ErrCodeInvalidBranch, fmt.Sprintf("invalid branch name '%s': %s", branch, reason)).
		WithDetail("branch", branch)
}

// BranchExists creates a duplicate branch error
func BranchExists(branch string) *AviaryError {
	return New(ErrCodeBranchExists, fmt.Sprintf("a session for branch '%s' already exists", branch)).
		WithDetail("branch", branch)
}

// SessionNotFound creates a session not found error
func SessionNotFound(branch string) *AviaryError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("no session found for branch '%s'", branch)).
		WithDetail("branch", branch)
}

// PortExhausted creates a port range exhaustion error
func PortExhausted(basePort, searched int) *AviaryError {
	return New(ErrCodePortExhausted,
		fmt.Sprintf("no free port range found after searching %d windows from port %d", searched, basePort)).
		WithDetail("basePort", basePort).
		WithDetail("windowsSearched", searched)
}

// WorktreeDirty creates an uncommitted-changes error
func WorktreeDirty(path string) *AviaryError {
	return New(ErrCodeWorktreeDirty,
		fmt.Sprintf("worktree at %s has uncommitted changes (use --force to remove anyway)", path)).
		WithDetail("path", path)
}

// SpawnFailed creates a terminal spawn failure error carrying the raw
// automation output.
func SpawnFailed(terminal string, err error, output string) *AviaryError {
	return Wrap(err, ErrCodeSpawnFailed, fmt.Sprintf("failed to spawn %s window", terminal)).
		WithDetail("terminal", terminal).
		WithDetail("output", output)
}

// CloseFailed creates a terminal close failure error
func CloseFailed(terminal, windowID string, err error, output string) *AviaryError {
	return Wrap(err, ErrCodeCloseFailed, fmt.Sprintf("failed to close %s window %s", terminal, windowID)).
		WithDetail("terminal", terminal).
		WithDetail("windowId", windowID).
		WithDetail("output", output)
}

// FocusFailed creates a terminal focus failure error
func FocusFailed(terminal, windowID string, err error, output string) *AviaryError {
	return Wrap(err, ErrCodeFocusFailed, fmt.Sprintf("failed to focus %s window %s", terminal, windowID)).
		WithDetail("terminal", terminal).
		WithDetail("windowId", windowID).
		WithDetail("output", output)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *AviaryError {
	aviaryErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		aviaryErr = aviaryErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return aviaryErr
}

// GitFailed creates a git failure error with the offending command and output
func GitFailed(args string, err error, output string) *AviaryError {
	return Wrap(err, ErrCodeGitFailed, fmt.Sprintf("git %s failed", args)).
		WithDetail("args", args).
		WithDetail("output", output)
}

// SessionCorrupt creates a malformed session file error
func SessionCorrupt(path string, err error) *AviaryError {
	return Wrap(err, ErrCodeSessionCorrupt, fmt.Sprintf("session file is malformed: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *AviaryError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}
