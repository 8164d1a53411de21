// Package ports derives conflict-free port ranges for new sessions.
package ports

import (
	"github.com/sirupsen/logrus"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/logging"
	"github.com/grovetools/aviary/pkg/models"
)

// Allocator finds a free port window by scanning the ranges existing sessions
// already hold. It keeps no reservation table: callers pass a fresh snapshot
// of existing sessions on every call, so two near-simultaneous allocations
// can race. That race is detected downstream by health/cleanup rather than
// prevented here.
type Allocator struct {
	portCount   int
	searchLimit int
	log         *logrus.Entry
}

// NewAllocator creates an allocator handing out windows of portCount ports,
// searching at most searchLimit candidate windows per allocation.
func NewAllocator(portCount, searchLimit int) *Allocator {
	return &Allocator{
		portCount:   portCount,
		searchLimit: searchLimit,
		log:         logging.NewLogger("ports"),
	}
}

// CalculatePortRange derives the deterministic starting window for the given
// ordinal: window n occupies [base+n*count, base+(n+1)*count-1].
func (a *Allocator) CalculatePortRange(basePort, ordinal int) models.PortRange {
	start := basePort + ordinal*a.portCount
	return models.PortRange{Start: start, End: start + a.portCount - 1}
}

// AllocatePortRange returns the first window from basePort, stepping by the
// window size, that overlaps no existing session's range. Exhausting the
// bounded search space is a resource error, never retried internally.
func (a *Allocator) AllocatePortRange(existing []*models.Session, basePort int) (models.PortRange, error) {
	for ordinal := 0; ordinal < a.searchLimit; ordinal++ {
		candidate := a.CalculatePortRange(basePort, ordinal)
		if candidate.End > 65535 {
			break
		}
		if IsPortRangeAvailable(candidate, existing) {
			a.log.WithFields(logrus.Fields{
				"range":   candidate.String(),
				"ordinal": ordinal,
			}).Debug("Allocated port range")
			return candidate, nil
		}
	}
	return models.PortRange{}, errors.PortExhausted(basePort, a.searchLimit)
}

// IsPortRangeAvailable is a pure interval test: true when the candidate
// overlaps none of the existing sessions' ranges.
func IsPortRangeAvailable(candidate models.PortRange, existing []*models.Session) bool {
	for _, session := range existing {
		if candidate.Overlaps(session.PortRange) {
			return false
		}
	}
	return true
}
