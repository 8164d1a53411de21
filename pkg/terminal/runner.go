package terminal

import (
	"context"
	"strings"
	"syscall"

	"github.com/grovetools/aviary/command"
	"github.com/grovetools/aviary/errors"
)

// Runner executes the OS automation primitives backends are built from:
// osascript evaluation, direct detached process execution, and process
// signalling. Tests substitute a script-recording fake.
type Runner interface {
	// RunScript evaluates an AppleScript and returns its trimmed output.
	RunScript(ctx context.Context, script string) (string, error)

	// StartDetached starts a process directly from an argv list, without any
	// shell expansion, detached from the current process group. It returns
	// the child PID.
	StartDetached(ctx context.Context, dir string, env []string, name string, args ...string) (int, error)

	// IsAppRunning reports whether a macOS application process is running.
	IsAppRunning(ctx context.Context, appName string) bool

	// Terminate sends SIGTERM to a process.
	Terminate(pid int) error
}

// OSRunner is the production Runner, shelling out through the SafeBuilder.
type OSRunner struct {
	cmdBuilder *command.SafeBuilder
}

var _ Runner = (*OSRunner)(nil)

// NewOSRunner creates the production automation runner.
func NewOSRunner() *OSRunner {
	return &OSRunner{cmdBuilder: command.NewSafeBuilder()}
}

// RunScript evaluates the script via osascript. On failure the combined
// output is preserved so the raw automation diagnostic reaches the user.
func (r *OSRunner) RunScript(ctx context.Context, script string) (string, error) {
	cmd, err := r.cmdBuilder.Build(ctx, "osascript", "-e", script)
	if err != nil {
		return "", err
	}

	output, err := cmd.Exec().CombinedOutput()
	if err != nil {
		return string(output), errors.CommandFailed("osascript", err).
			WithDetail("output", string(output))
	}

	return strings.TrimSpace(string(output)), nil
}

// StartDetached execs name with args directly; the argv list is passed
// through untouched, so quoting pitfalls cannot arise. The child is built
// without a timeout context: the spawned window must keep running after this
// call returns.
func (r *OSRunner) StartDetached(ctx context.Context, dir string, env []string, name string, args ...string) (int, error) {
	cmd, err := r.cmdBuilder.BuildDetached(name, args...)
	if err != nil {
		return 0, err
	}

	execCmd := cmd.Exec()
	execCmd.Dir = dir
	if len(env) > 0 {
		execCmd.Env = env
	}
	execCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := execCmd.Start(); err != nil {
		return 0, errors.CommandFailed(name, err)
	}

	pid := execCmd.Process.Pid

	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = execCmd.Wait() }()

	return pid, nil
}

// IsAppRunning asks System Events whether the named process exists.
func (r *OSRunner) IsAppRunning(ctx context.Context, appName string) bool {
	script := `tell application "System Events" to (name of processes) contains "` + appName + `"`
	output, err := r.RunScript(ctx, script)
	return err == nil && output == "true"
}

// Terminate sends SIGTERM.
func (r *OSRunner) Terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
