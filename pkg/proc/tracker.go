package proc

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/aviary/logging"
)

// startTimeTolerance absorbs the second-granularity of ps lstart when
// comparing recorded and observed process start times.
const startTimeTolerance = 2 * time.Second

// builtinAliases maps well-known agent names to the process names they
// actually run as. Config can extend this per agent.
var builtinAliases = map[string][]string{
	"claude-code": {"claude"},
	"cursor-cli":  {"cursor"},
}

// Sleeper delays between retry attempts. Injected so tests can run the full
// backoff schedule without wall-clock waits.
type Sleeper func(time.Duration)

// TrackerOptions tunes process discovery.
type TrackerOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Aliases adds per-agent process name substrings on top of the builtins.
	Aliases map[string][]string
	// Sleep replaces time.Sleep when set.
	Sleep Sleeper
}

// Tracker discovers the OS process backing a spawned agent command.
type Tracker struct {
	table       Table
	maxAttempts int
	baseDelay   time.Duration
	aliases     map[string][]string
	sleep       Sleeper
	log         *logrus.Entry
}

// NewTracker creates a tracker over the given process table.
func NewTracker(table Table, opts TrackerOptions) *Tracker {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	aliases := make(map[string][]string, len(builtinAliases)+len(opts.Aliases))
	for k, v := range builtinAliases {
		aliases[k] = append(aliases[k], v...)
	}
	for k, v := range opts.Aliases {
		aliases[k] = append(aliases[k], v...)
	}

	return &Tracker{
		table:       table,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		aliases:     aliases,
		sleep:       sleep,
		log:         logging.NewLogger("proc"),
	}
}

// GenerateSearchPatterns expands an agent pattern into the candidate
// substrings to match against the process table: the literal pattern, its
// prefix before the first separator, and any known aliases.
func (t *Tracker) GenerateSearchPatterns(pattern string) []string {
	seen := map[string]struct{}{}
	var patterns []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		patterns = append(patterns, p)
	}

	add(pattern)
	if idx := strings.IndexAny(pattern, "-_"); idx > 0 {
		add(pattern[:idx])
	}
	for _, alias := range t.aliases[pattern] {
		add(alias)
	}

	return patterns
}

// FindProcessByName scans the process table once. A process matches when its
// image name or command line contains any candidate pattern, and, when
// commandPattern is non-empty, its command line also contains commandPattern.
// The first match wins. A nil result with nil error means no match.
func (t *Tracker) FindProcessByName(ctx context.Context, pattern, commandPattern string) (*Info, error) {
	patterns := t.GenerateSearchPatterns(pattern)

	infos, err := t.table.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range infos {
		info := &infos[i]
		if !matchesAny(info, patterns) {
			continue
		}
		if commandPattern != "" && !strings.Contains(info.Cmdline, commandPattern) {
			continue
		}
		return info, nil
	}

	return nil, nil
}

func matchesAny(info *Info, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(info.Name, p) || strings.Contains(info.Cmdline, p) {
			return true
		}
	}
	return false
}

// FindAgentProcessWithRetry retries discovery with exponential backoff
// (baseDelay, 2x per attempt). Exhaustion is not an error: an agent whose
// process was never found is a degraded but valid session, so the caller
// receives nil and a logged warning.
func (t *Tracker) FindAgentProcessWithRetry(ctx context.Context, pattern, commandPattern string) (*Info, error) {
	delay := t.baseDelay
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		info, err := t.FindProcessByName(ctx, pattern, commandPattern)
		if err != nil {
			return nil, err
		}
		if info != nil {
			t.log.WithFields(logrus.Fields{
				"pattern": pattern,
				"pid":     info.PID,
				"attempt": attempt,
			}).Debug("Found agent process")
			return info, nil
		}

		t.log.WithFields(logrus.Fields{
			"pattern": pattern,
			"attempt": attempt,
			"of":      t.maxAttempts,
			"delay":   delay.String(),
		}).Debug("Agent process not found yet")

		if attempt < t.maxAttempts {
			t.sleep(delay)
			delay *= 2
		}
	}

	t.log.WithField("pattern", pattern).Warn("Agent process not found after all attempts; session will be tracked without a PID")
	return nil, nil
}

// VerifyProcess re-checks that the recorded PID still belongs to the process
// it was recorded for. Liveness alone is not enough: the OS recycles PIDs, so
// the live process must also match the recorded name and start time.
func (t *Tracker) VerifyProcess(ctx context.Context, pid int, name string, startTime *time.Time) bool {
	if !IsProcessAlive(pid) {
		return false
	}

	infos, err := t.table.List(ctx)
	if err != nil {
		// Table read failure: fall back to the cheap liveness answer.
		return true
	}

	for i := range infos {
		info := &infos[i]
		if info.PID != pid {
			continue
		}
		if name != "" && !strings.Contains(info.Name, name) && !strings.Contains(info.Cmdline, name) {
			return false
		}
		if startTime != nil {
			drift := info.StartTime.Sub(*startTime)
			if drift < -startTimeTolerance || drift > startTimeTolerance {
				return false
			}
		}
		return true
	}

	return false
}
