// Package health classifies sessions by process and activity state.
package health

import (
	"time"

	"github.com/grovetools/aviary/pkg/models"
)

// Status is the health classification of a session.
type Status string

const (
	// StatusWorking means the process is running with recent activity.
	StatusWorking Status = "working"
	// StatusIdle means elapsed-since-activity exceeds the idle threshold.
	StatusIdle Status = "idle"
	// StatusStuck means elapsed-since-activity exceeds the stuck threshold.
	StatusStuck Status = "stuck"
	// StatusCrashed means a PID was recorded but the process is gone.
	StatusCrashed Status = "crashed"
	// StatusUnknown means no PID was ever recorded for the session.
	StatusUnknown Status = "unknown"
)

// Thresholds are the runtime-configurable activity cutoffs.
type Thresholds struct {
	Idle  time.Duration
	Stuck time.Duration
}

// Evaluate is a pure function of the observed facts. hasPID reports whether a
// PID was ever recorded; processRunning whether that PID (name and start time
// verified) is alive now.
func Evaluate(hasPID, processRunning bool, lastActivity *time.Time, thresholds Thresholds, now time.Time) Status {
	if !hasPID {
		return StatusUnknown
	}
	if !processRunning {
		return StatusCrashed
	}
	if lastActivity == nil {
		return StatusWorking
	}

	elapsed := now.Sub(*lastActivity)
	switch {
	case elapsed > thresholds.Stuck:
		return StatusStuck
	case elapsed > thresholds.Idle:
		return StatusIdle
	default:
		return StatusWorking
	}
}

// Report pairs a session with its classification.
type Report struct {
	Session *models.Session
	Status  Status
}
