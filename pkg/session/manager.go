// Package session orchestrates session lifecycle: create, restart, destroy.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/aviary/command"
	"github.com/grovetools/aviary/config"
	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/git"
	"github.com/grovetools/aviary/logging"
	"github.com/grovetools/aviary/pkg/health"
	"github.com/grovetools/aviary/pkg/models"
	"github.com/grovetools/aviary/pkg/ports"
	"github.com/grovetools/aviary/pkg/proc"
	"github.com/grovetools/aviary/pkg/store"
	"github.com/grovetools/aviary/pkg/terminal"
	"github.com/grovetools/aviary/util/sanitize"
)

// CreateRequest describes a session to create.
type CreateRequest struct {
	Branch string
	Agent  string
	// CommandOverride replaces the agent's configured command when set.
	CommandOverride string
	Note            string
}

// Deps are the collaborators the manager composes. Every field has a
// production default; tests inject fakes.
type Deps struct {
	Store     store.Store
	Allocator *ports.Allocator
	Tracker   *proc.Tracker
	Table     proc.Table
	Worktrees git.WorktreeProvider
	Repo      git.RepositoryProvider
	Runner    terminal.Runner
	// NewBackend builds a backend for a concrete terminal type.
	NewBackend func(models.TerminalType) (terminal.Backend, error)
	// Sleep is the post-spawn settle delay; injected for tests.
	Sleep func(time.Duration)
	// Now is the clock; injected for tests.
	Now func() time.Time
}

// Manager orchestrates session lifecycle over the store, allocator, tracker,
// terminal backends, and git. Operations are synchronous and sequential; a
// failure at step N does not roll back earlier steps, but every failure after
// worktree creation carries branch and path context so the orphaned worktree
// can be found and cleaned.
type Manager struct {
	cfg     *config.Config
	repoDir string
	deps    Deps
	builder *command.SafeBuilder
	log     *logrus.Entry
}

// NewManager creates a manager for the repository at repoDir.
func NewManager(cfg *config.Config, repoDir string, deps Deps) (*Manager, error) {
	if deps.Store == nil {
		dir, err := cfg.SessionsDir()
		if err != nil {
			return nil, err
		}
		deps.Store = store.NewFileStore(dir)
	}
	if deps.Allocator == nil {
		deps.Allocator = ports.NewAllocator(cfg.Ports.PortsPerSession, cfg.Ports.SearchLimit)
	}
	if deps.Table == nil {
		deps.Table = proc.NewPSTable()
	}
	if deps.Tracker == nil {
		aliases := make(map[string][]string, len(cfg.Agents))
		for name, agent := range cfg.Agents {
			aliases[name] = agent.Aliases
		}
		deps.Tracker = proc.NewTracker(deps.Table, proc.TrackerOptions{
			MaxAttempts: cfg.Tracker.MaxAttempts,
			BaseDelay:   cfg.Tracker.BaseDelay.Std(),
			Aliases:     aliases,
		})
	}
	if deps.Worktrees == nil {
		deps.Worktrees = git.NewWorktreeManager()
	}
	if deps.Repo == nil {
		deps.Repo = git.NewRepository()
	}
	if deps.Runner == nil {
		deps.Runner = terminal.NewOSRunner()
	}
	if deps.NewBackend == nil {
		runner, table := deps.Runner, deps.Table
		deps.NewBackend = func(t models.TerminalType) (terminal.Backend, error) {
			return terminal.New(t, runner, table)
		}
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Manager{
		cfg:     cfg,
		repoDir: repoDir,
		deps:    deps,
		builder: command.NewSafeBuilder(),
		log:     logging.NewLogger("session"),
	}, nil
}

// Create validates the request, allocates ports, creates the worktree, spawns
// the agent in a terminal window, tracks its process, and persists the
// session. The session file is written only once every field is resolved.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.Session, error) {
	if err := m.builder.Validate("gitRef", req.Branch); err != nil {
		return nil, errors.InvalidBranch(req.Branch, err.Error())
	}
	if req.Agent == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "agent must not be empty")
	}
	if err := m.builder.Validate("agentName", req.Agent); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, err.Error())
	}

	projectID, err := m.deps.Repo.GetProjectID(ctx, m.repoDir)
	if err != nil {
		return nil, err
	}

	existing, err := m.deps.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	projectSessions := filterProject(existing, projectID)
	for _, s := range projectSessions {
		if s.Branch == req.Branch {
			return nil, errors.BranchExists(req.Branch)
		}
	}

	portRange, err := m.deps.Allocator.AllocatePortRange(projectSessions, m.cfg.Ports.BasePort)
	if err != nil {
		return nil, err
	}

	repoRoot, err := m.deps.Repo.GetGitRoot(ctx, m.repoDir)
	if err != nil {
		return nil, err
	}

	worktreeRoot, err := m.cfg.WorktreeRoot()
	if err != nil {
		return nil, err
	}
	worktreePath := filepath.Join(worktreeRoot, projectID, sanitize.ForPathSegment(req.Branch))

	// A worktree cannot be created with -b for a branch that already exists
	// or is currently checked out.
	createBranch := true
	if current, err := m.deps.Worktrees.GetCurrentBranch(ctx, repoRoot); err == nil && current == req.Branch {
		createBranch = false
	} else if exists, err := m.deps.Worktrees.BranchExists(ctx, repoRoot, req.Branch); err == nil && exists {
		createBranch = false
	}

	if err := m.deps.Worktrees.CreateWorktree(ctx, repoRoot, worktreePath, req.Branch, createBranch); err != nil {
		return nil, err
	}

	// From here on the worktree exists; every failure must carry enough
	// context to find and clean it.
	agentCommand := req.CommandOverride
	if agentCommand == "" {
		agentCommand = m.cfg.ResolveAgentCommand(req.Agent)
	}

	session := &models.Session{
		ID:           uuid.NewString(),
		Branch:       req.Branch,
		Agent:        req.Agent,
		Command:      agentCommand,
		ProjectID:    projectID,
		WorktreePath: worktreePath,
		Status:       models.StatusActive,
		CreatedAt:    m.deps.Now(),
		Note:         req.Note,
		PortRange:    portRange,
	}

	if err := m.spawnAndTrack(ctx, session); err != nil {
		return nil, withWorktreeContext(err, req.Branch, worktreePath)
	}

	if err := m.deps.Store.Save(session); err != nil {
		return nil, withWorktreeContext(err, req.Branch, worktreePath)
	}

	m.log.WithFields(logrus.Fields{
		"branch": session.Branch,
		"agent":  session.Agent,
		"ports":  session.PortRange.String(),
	}).Info("Created session")

	return session, nil
}

// Restart re-spawns the agent in the existing worktree. Ports, worktree, id
// and creation time are preserved; process, terminal, and activity fields are
// updated and the session goes back to active.
func (m *Manager) Restart(ctx context.Context, branch string) (*models.Session, error) {
	session, err := m.deps.Store.LoadByBranch(branch)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(session.WorktreePath); os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeInternal, "worktree is missing; destroy the session and recreate it").
			WithDetail("branch", branch).
			WithDetail("worktreePath", session.WorktreePath)
	}

	// Best-effort close of the previous window before opening a new one.
	if session.TerminalWindowID != "" {
		if backend, err := m.deps.NewBackend(session.TerminalType); err == nil {
			if err := backend.CloseWindow(ctx, session.TerminalWindowID); err != nil {
				m.log.WithError(err).WithField("branch", branch).Warn("Could not close previous window")
			}
		}
	}

	session.Status = models.StatusActive
	if err := m.spawnAndTrack(ctx, session); err != nil {
		return nil, withWorktreeContext(err, branch, session.WorktreePath)
	}

	if err := m.deps.Store.Save(session); err != nil {
		return nil, err
	}

	m.log.WithField("branch", branch).Info("Restarted session")
	return session, nil
}

// Destroy closes the window (best-effort), removes the worktree, and deletes
// the session file. Without force, a dirty worktree aborts with a recoverable
// error before anything is deleted.
func (m *Manager) Destroy(ctx context.Context, branch string, force bool) error {
	session, err := m.deps.Store.LoadByBranch(branch)
	if err != nil {
		return err
	}

	if session.TerminalWindowID != "" {
		backend, err := m.deps.NewBackend(session.TerminalType)
		if err == nil {
			if err := backend.CloseWindow(ctx, session.TerminalWindowID); err != nil {
				// A failed close never blocks destruction.
				m.log.WithError(err).WithField("branch", branch).Warn("Could not close terminal window")
			}
		}
	}

	if _, err := os.Stat(session.WorktreePath); err == nil {
		repoRoot, err := m.deps.Repo.GetGitRoot(ctx, m.repoDir)
		if err != nil {
			return err
		}
		if err := m.deps.Worktrees.RemoveWorktree(ctx, repoRoot, session.WorktreePath, force); err != nil {
			return err
		}
	} else {
		m.log.WithField("worktreePath", session.WorktreePath).Debug("Worktree already gone")
	}

	if err := m.deps.Store.Remove(session.ID); err != nil {
		return err
	}

	m.log.WithField("branch", branch).Info("Destroyed session")
	return nil
}

// List returns all sessions for the current project.
func (m *Manager) List(ctx context.Context) ([]*models.Session, error) {
	projectID, err := m.deps.Repo.GetProjectID(ctx, m.repoDir)
	if err != nil {
		return nil, err
	}
	sessions, err := m.deps.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	return filterProject(sessions, projectID), nil
}

// Get returns the session for a branch.
func (m *Manager) Get(ctx context.Context, branch string) (*models.Session, error) {
	return m.deps.Store.LoadByBranch(branch)
}

// Focus fronts the session's terminal window and records the interaction as
// activity. A focus failure is reported but never retried.
func (m *Manager) Focus(ctx context.Context, branch string) error {
	session, err := m.deps.Store.LoadByBranch(branch)
	if err != nil {
		return err
	}
	if session.TerminalWindowID == "" {
		return errors.New(errors.ErrCodeFocusFailed, "session has no terminal window recorded").
			WithDetail("branch", branch)
	}

	backend, err := m.deps.NewBackend(session.TerminalType)
	if err != nil {
		return err
	}
	if err := backend.FocusWindow(ctx, session.TerminalWindowID); err != nil {
		return err
	}

	now := m.deps.Now()
	session.LastActivity = &now
	return m.deps.Store.Save(session)
}

// SetNote updates the free-text note on a session.
func (m *Manager) SetNote(ctx context.Context, branch, note string) error {
	session, err := m.deps.Store.LoadByBranch(branch)
	if err != nil {
		return err
	}
	session.Note = note
	return m.deps.Store.Save(session)
}

// HealthOne classifies a single session.
func (m *Manager) HealthOne(ctx context.Context, branch string) (*health.Report, error) {
	session, err := m.deps.Store.LoadByBranch(branch)
	if err != nil {
		return nil, err
	}
	return m.evaluate(ctx, session), nil
}

// HealthAll classifies every session in the current project.
func (m *Manager) HealthAll(ctx context.Context) ([]*health.Report, error) {
	sessions, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*health.Report, 0, len(sessions))
	for _, s := range sessions {
		reports = append(reports, m.evaluate(ctx, s))
	}
	return reports, nil
}

func (m *Manager) evaluate(ctx context.Context, session *models.Session) *health.Report {
	running := false
	if session.HasProcess() {
		running = m.deps.Tracker.VerifyProcess(ctx, *session.ProcessID, session.ProcessName, session.ProcessStartTime)
	}
	status := health.Evaluate(session.HasProcess(), running, session.LastActivity, health.Thresholds{
		Idle:  m.cfg.Health.IdleThreshold.Std(),
		Stuck: m.cfg.Health.StuckThreshold.Std(),
	}, m.deps.Now())
	return &health.Report{Session: session, Status: status}
}

// spawnAndTrack opens the terminal window, waits the configured settle delay,
// and attempts process discovery. A session whose process is never found is
// degraded, not failed: it is persisted without a PID.
func (m *Manager) spawnAndTrack(ctx context.Context, session *models.Session) error {
	terminalType := terminal.Resolve(models.TerminalType(m.cfg.Terminal.Preferred), m.deps.Runner)
	backend, err := m.deps.NewBackend(terminalType)
	if err != nil {
		return err
	}

	title := windowTitle(session.ProjectID, session.Branch)
	spawnCommand := commandWithPortEnv(session.Command, session.PortRange, terminalType)

	result, err := backend.Spawn(ctx, session.WorktreePath, spawnCommand, title)
	if err != nil {
		return err
	}

	session.TerminalType = terminalType
	session.TerminalWindowID = result.WindowID

	m.deps.Sleep(m.cfg.Terminal.SpawnDelay.Std())

	info, err := m.deps.Tracker.FindAgentProcessWithRetry(ctx, session.Agent, session.WorktreePath)
	if err != nil {
		return err
	}
	if info != nil {
		pid := info.PID
		startTime := info.StartTime
		session.ProcessID = &pid
		session.ProcessName = info.Name
		session.ProcessStartTime = &startTime
	} else if result.PID != nil {
		// Fall back to the directly-spawned PID (Ghostty) when table
		// discovery came up empty.
		session.ProcessID = result.PID
	} else {
		m.log.WithField("branch", session.Branch).Warn("Session created without a tracked process")
	}

	now := m.deps.Now()
	session.LastActivity = &now
	return nil
}

// windowTitle builds the per-session title; for Ghostty it doubles as the
// window id, so it must be unique within a project.
func windowTitle(projectID, branch string) string {
	return sanitize.ForWindowTitle(fmt.Sprintf("aviary %s %s", projectID, branch))
}

// commandWithPortEnv prefixes the reserved port range as environment
// variables. Ghostty spawns without a shell, so assignments would not be
// interpreted there and the command is passed through untouched.
func commandWithPortEnv(cmd string, pr models.PortRange, t models.TerminalType) string {
	if t == models.TerminalGhostty {
		return cmd
	}
	return fmt.Sprintf("PORT=%d PORT_RANGE_START=%d PORT_RANGE_END=%d %s", pr.Start, pr.Start, pr.End, cmd)
}

// withWorktreeContext stamps branch and worktree path onto an error so a
// failed create never strands an unfindable worktree.
func withWorktreeContext(err error, branch, worktreePath string) error {
	var aviaryErr *errors.AviaryError
	if e, ok := err.(*errors.AviaryError); ok {
		aviaryErr = e
	} else {
		aviaryErr = errors.Wrap(err, errors.ErrCodeInternal, "session setup failed after worktree creation")
	}
	return aviaryErr.
		WithDetail("branch", branch).
		WithDetail("worktreePath", worktreePath)
}

func filterProject(sessions []*models.Session, projectID string) []*models.Session {
	var result []*models.Session
	for _, s := range sessions {
		if s.ProjectID == projectID {
			result = append(result, s)
		}
	}
	return result
}
