// Package proc finds and validates OS processes for spawned agents.
package proc

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/grovetools/aviary/command"
	"github.com/grovetools/aviary/errors"
)

// Info describes one live process.
type Info struct {
	PID       int
	Name      string // process image name
	Cmdline   string // full command line
	StartTime time.Time
}

// Table enumerates the OS process table. The real implementation shells out
// to ps; tests substitute a fixture.
type Table interface {
	List(ctx context.Context) ([]Info, error)
}

// PSTable reads the process table via ps.
type PSTable struct {
	cmdBuilder *command.SafeBuilder
}

var _ Table = (*PSTable)(nil)

// NewPSTable creates the production process table accessor.
func NewPSTable() *PSTable {
	return &PSTable{cmdBuilder: command.NewSafeBuilder()}
}

// NewPSTableWithExecutor creates a table accessor with a custom executor.
func NewPSTableWithExecutor(exec command.Executor) *PSTable {
	return &PSTable{cmdBuilder: command.NewSafeBuilderWithExecutor(exec)}
}

// List returns a snapshot of all processes. lstart gives the start time at
// second granularity, which is enough to disambiguate PID reuse.
func (t *PSTable) List(ctx context.Context) ([]Info, error) {
	cmd, err := t.cmdBuilder.Build(ctx, "ps", "-axo", "pid=,lstart=,args=")
	if err != nil {
		return nil, err
	}

	output, err := cmd.Exec().Output()
	if err != nil {
		return nil, errors.CommandFailed("ps -axo pid,lstart,args", err)
	}

	return parsePSOutput(string(output)), nil
}

// parsePSOutput parses lines of the form
//
//	  492 Mon Mar  2 09:15:04 2026 /usr/local/bin/claude chat --dir /tmp/wt
//
// where lstart is always five space-separated fields.
func parsePSOutput(output string) []Info {
	var infos []Info
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 7 {
			continue
		}

		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		startTime, err := time.ParseInLocation("Mon Jan 2 15:04:05 2006", strings.Join(fields[1:6], " "), time.Local)
		if err != nil {
			continue
		}

		cmdline := strings.Join(fields[6:], " ")
		infos = append(infos, Info{
			PID:       pid,
			Name:      filepath.Base(fields[6]),
			Cmdline:   cmdline,
			StartTime: startTime,
		})
	}
	return infos
}

// IsProcessAlive checks if a process with the given PID is still running, by
// sending signal 0. EPERM still means alive (process owned by another user).
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
