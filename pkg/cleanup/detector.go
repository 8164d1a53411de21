// Package cleanup finds and removes orphaned sessions, branches, and
// worktrees. Detection and deletion are separate steps: Scan is read-only and
// produces a report, Cleanup deletes what a report names and tolerates
// partial failure.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/aviary/config"
	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/git"
	"github.com/grovetools/aviary/logging"
	"github.com/grovetools/aviary/pkg/models"
	"github.com/grovetools/aviary/pkg/proc"
	"github.com/grovetools/aviary/pkg/store"
)

// Strategy selects one detection rule. Each strategy is independent; All runs
// every rule and unions the results.
type Strategy string

const (
	// StrategyStructural finds sessions whose worktree directory is gone.
	StrategyStructural Strategy = "structural"
	// StrategyNoPID finds sessions that never got a tracked process.
	StrategyNoPID Strategy = "no-pid"
	// StrategyStopped finds sessions whose recorded PID is no longer live.
	StrategyStopped Strategy = "stopped"
	// StrategyAge finds sessions older than a cutoff.
	StrategyAge Strategy = "age"
	// StrategyBranches finds prefix-convention branches with no worktree.
	StrategyBranches Strategy = "orphaned-branches"
	// StrategyWorktrees finds registered worktrees whose branch is gone.
	StrategyWorktrees Strategy = "orphaned-worktrees"
	// StrategyAll unions every strategy.
	StrategyAll Strategy = "all"
)

// Strategies lists every selectable strategy name.
func Strategies() []Strategy {
	return []Strategy{
		StrategyStructural, StrategyNoPID, StrategyStopped, StrategyAge,
		StrategyBranches, StrategyWorktrees, StrategyAll,
	}
}

// ParseStrategy validates a strategy name from user input.
func ParseStrategy(s string) (Strategy, error) {
	for _, known := range Strategies() {
		if Strategy(s) == known {
			return known, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown cleanup strategy: "+s)
}

// ItemKind says what an orphan item refers to.
type ItemKind string

const (
	KindSession  ItemKind = "session"
	KindBranch   ItemKind = "branch"
	KindWorktree ItemKind = "worktree"
)

// Item is one orphan found by a scan. Session items carry the session;
// branch and worktree items carry only the git-side identifier.
type Item struct {
	Kind     ItemKind
	Strategy Strategy
	// Branch names the session branch or the orphaned git branch.
	Branch string
	// Path is the worktree path, when the item has one.
	Path string
	// Reason is a one-line human explanation.
	Reason string

	session *models.Session
}

// Key identifies an item for dedup across strategies.
func (i Item) Key() string {
	return string(i.Kind) + ":" + i.Branch + ":" + i.Path
}

// Report is the read-only result of a scan.
type Report struct {
	Strategy Strategy
	Items    []Item
}

// Failure records one item Cleanup could not delete.
type Failure struct {
	Item Item
	Err  error
}

// Summary is the result of a delete pass. Removed and Failed partition the
// report's items; a failed deletion never aborts the batch.
type Summary struct {
	Removed []Item
	Failed  []Failure
}

// Detector scans the session store and the git repository for orphans.
type Detector struct {
	cfg       *config.Config
	repoDir   string
	store     store.Store
	worktrees git.WorktreeProvider
	repo      git.RepositoryProvider
	alive     func(pid int) bool
	now       func() time.Time
	log       *logrus.Entry
}

// DetectorOptions override production collaborators for tests.
type DetectorOptions struct {
	Store     store.Store
	Worktrees git.WorktreeProvider
	Repo      git.RepositoryProvider
	Alive     func(pid int) bool
	Now       func() time.Time
}

// NewDetector creates a detector for the repository at repoDir.
func NewDetector(cfg *config.Config, repoDir string, opts DetectorOptions) (*Detector, error) {
	if opts.Store == nil {
		dir, err := cfg.SessionsDir()
		if err != nil {
			return nil, err
		}
		opts.Store = store.NewFileStore(dir)
	}
	if opts.Worktrees == nil {
		opts.Worktrees = git.NewWorktreeManager()
	}
	if opts.Repo == nil {
		opts.Repo = git.NewRepository()
	}
	if opts.Alive == nil {
		opts.Alive = proc.IsProcessAlive
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Detector{
		cfg:       cfg,
		repoDir:   repoDir,
		store:     opts.Store,
		worktrees: opts.Worktrees,
		repo:      opts.Repo,
		alive:     opts.Alive,
		now:       opts.Now,
		log:       logging.NewLogger("cleanup"),
	}, nil
}

// Scan runs one strategy (or all of them) and reports what it found. Scan
// never mutates anything. maxAge is only consulted by the age strategy.
func (d *Detector) Scan(ctx context.Context, strategy Strategy, maxAge time.Duration) (*Report, error) {
	projectID, err := d.repo.GetProjectID(ctx, d.repoDir)
	if err != nil {
		return nil, err
	}
	sessions, err := d.store.LoadAll()
	if err != nil {
		return nil, err
	}
	var project []*models.Session
	for _, s := range sessions {
		if s.ProjectID == projectID {
			project = append(project, s)
		}
	}

	report := &Report{Strategy: strategy}
	seen := map[string]bool{}
	add := func(items []Item, err error) error {
		if err != nil {
			return err
		}
		for _, item := range items {
			if seen[item.Key()] {
				continue
			}
			seen[item.Key()] = true
			report.Items = append(report.Items, item)
		}
		return nil
	}

	strategies := []Strategy{strategy}
	if strategy == StrategyAll {
		strategies = []Strategy{
			StrategyStructural, StrategyNoPID, StrategyStopped, StrategyAge,
			StrategyBranches, StrategyWorktrees,
		}
	}

	for _, s := range strategies {
		switch s {
		case StrategyStructural:
			err = add(d.scanStructural(project), nil)
		case StrategyNoPID:
			err = add(d.scanNoPID(project), nil)
		case StrategyStopped:
			err = add(d.scanStopped(project), nil)
		case StrategyAge:
			err = add(d.scanAge(project, maxAge), nil)
		case StrategyBranches:
			err = add(d.scanBranches(ctx))
		case StrategyWorktrees:
			err = add(d.scanWorktrees(ctx))
		default:
			err = errors.New(errors.ErrCodeInvalidInput, "unknown cleanup strategy: "+string(s))
		}
		if err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (d *Detector) scanStructural(sessions []*models.Session) []Item {
	var items []Item
	for _, s := range sessions {
		if _, err := os.Stat(s.WorktreePath); os.IsNotExist(err) {
			items = append(items, Item{
				Kind:     KindSession,
				Strategy: StrategyStructural,
				Branch:   s.Branch,
				Path:     s.WorktreePath,
				Reason:   "worktree directory is missing",
				session:  s,
			})
		}
	}
	return items
}

func (d *Detector) scanNoPID(sessions []*models.Session) []Item {
	var items []Item
	for _, s := range sessions {
		if !s.HasProcess() {
			items = append(items, Item{
				Kind:     KindSession,
				Strategy: StrategyNoPID,
				Branch:   s.Branch,
				Path:     s.WorktreePath,
				Reason:   "no process was ever tracked",
				session:  s,
			})
		}
	}
	return items
}

func (d *Detector) scanStopped(sessions []*models.Session) []Item {
	var items []Item
	for _, s := range sessions {
		if s.HasProcess() && !d.alive(*s.ProcessID) {
			items = append(items, Item{
				Kind:     KindSession,
				Strategy: StrategyStopped,
				Branch:   s.Branch,
				Path:     s.WorktreePath,
				Reason:   fmt.Sprintf("process %d is no longer running", *s.ProcessID),
				session:  s,
			})
		}
	}
	return items
}

func (d *Detector) scanAge(sessions []*models.Session, maxAge time.Duration) []Item {
	if maxAge <= 0 {
		return nil
	}
	cutoff := d.now().Add(-maxAge)
	var items []Item
	for _, s := range sessions {
		if s.CreatedAt.Before(cutoff) {
			items = append(items, Item{
				Kind:     KindSession,
				Strategy: StrategyAge,
				Branch:   s.Branch,
				Path:     s.WorktreePath,
				Reason:   fmt.Sprintf("created %s ago", d.now().Sub(s.CreatedAt).Round(time.Minute)),
				session:  s,
			})
		}
	}
	return items
}

// scanBranches finds branches carrying the configured prefix that no
// registered worktree checks out.
func (d *Detector) scanBranches(ctx context.Context) ([]Item, error) {
	prefix := d.cfg.Git.BranchPrefix
	if prefix == "" {
		return nil, nil
	}
	root, err := d.repo.GetGitRoot(ctx, d.repoDir)
	if err != nil {
		return nil, err
	}
	branches, err := d.worktrees.ListBranches(ctx, root, prefix)
	if err != nil {
		return nil, err
	}
	worktrees, err := d.worktrees.ListWorktrees(ctx, root)
	if err != nil {
		return nil, err
	}

	checkedOut := map[string]bool{}
	for _, wt := range worktrees {
		checkedOut[wt.Branch] = true
	}

	var items []Item
	for _, branch := range branches {
		if !checkedOut[branch] {
			items = append(items, Item{
				Kind:     KindBranch,
				Strategy: StrategyBranches,
				Branch:   branch,
				Reason:   "prefix branch has no worktree",
			})
		}
	}
	return items, nil
}

// scanWorktrees finds worktrees under the managed worktree root whose branch
// is gone or detached. Worktrees outside the root, including the main
// checkout, are never touched.
func (d *Detector) scanWorktrees(ctx context.Context) ([]Item, error) {
	root, err := d.repo.GetGitRoot(ctx, d.repoDir)
	if err != nil {
		return nil, err
	}
	worktreeRoot, err := d.cfg.WorktreeRoot()
	if err != nil {
		return nil, err
	}
	worktrees, err := d.worktrees.ListWorktrees(ctx, root)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, wt := range worktrees {
		if wt.Bare || !strings.HasPrefix(wt.Path, worktreeRoot+string(os.PathSeparator)) {
			continue
		}
		if wt.Branch == "" {
			items = append(items, Item{
				Kind:     KindWorktree,
				Strategy: StrategyWorktrees,
				Path:     wt.Path,
				Reason:   "worktree has a detached HEAD",
			})
			continue
		}
		exists, err := d.worktrees.BranchExists(ctx, root, wt.Branch)
		if err != nil {
			return nil, err
		}
		if !exists {
			items = append(items, Item{
				Kind:     KindWorktree,
				Strategy: StrategyWorktrees,
				Branch:   wt.Branch,
				Path:     wt.Path,
				Reason:   "worktree branch no longer exists",
			})
		}
	}
	return items, nil
}

// Cleanup deletes everything a report names. Deletion is per-item: a failure
// is recorded in the summary and the batch continues.
func (d *Detector) Cleanup(ctx context.Context, report *Report) *Summary {
	summary := &Summary{}
	for _, item := range report.Items {
		if err := d.remove(ctx, item); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"kind":   item.Kind,
				"branch": item.Branch,
				"path":   item.Path,
			}).Warn("Could not remove orphan")
			summary.Failed = append(summary.Failed, Failure{Item: item, Err: err})
			continue
		}
		summary.Removed = append(summary.Removed, item)
	}
	return summary
}

func (d *Detector) remove(ctx context.Context, item Item) error {
	switch item.Kind {
	case KindSession:
		return d.removeSession(ctx, item)
	case KindBranch:
		root, err := d.repo.GetGitRoot(ctx, d.repoDir)
		if err != nil {
			return err
		}
		return d.worktrees.DeleteBranch(ctx, root, item.Branch, true)
	case KindWorktree:
		root, err := d.repo.GetGitRoot(ctx, d.repoDir)
		if err != nil {
			return err
		}
		return d.worktrees.RemoveWorktree(ctx, root, item.Path, true)
	default:
		return errors.New(errors.ErrCodeInternal, "unknown orphan kind: "+string(item.Kind))
	}
}

// removeSession deletes the worktree if it is still on disk, then the
// session file. Orphan removal always forces the worktree removal; the
// session was already judged dead.
func (d *Detector) removeSession(ctx context.Context, item Item) error {
	session := item.session
	if session == nil {
		loaded, err := d.store.LoadByBranch(item.Branch)
		if err != nil {
			return err
		}
		session = loaded
	}

	if _, err := os.Stat(session.WorktreePath); err == nil {
		root, err := d.repo.GetGitRoot(ctx, d.repoDir)
		if err != nil {
			return err
		}
		if err := d.worktrees.RemoveWorktree(ctx, root, session.WorktreePath, true); err != nil {
			return err
		}
	}

	return d.store.Remove(session.ID)
}
