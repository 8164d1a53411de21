package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/aviary/config"
	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/git"
	"github.com/grovetools/aviary/pkg/health"
	"github.com/grovetools/aviary/pkg/models"
	"github.com/grovetools/aviary/pkg/ports"
	"github.com/grovetools/aviary/pkg/proc"
	"github.com/grovetools/aviary/pkg/store"
	"github.com/grovetools/aviary/pkg/terminal"
)

// --- fakes ---

type createCall struct {
	basePath     string
	worktreePath string
	branch       string
	createBranch bool
}

type removeCall struct {
	worktreePath string
	force        bool
}

type fakeWorktrees struct {
	creates       []createCall
	removes       []removeCall
	currentBranch string
	branches      map[string]bool
	dirty         bool
	createErr     error
	// makeDirs creates the worktree directory on disk, mirroring what
	// git worktree add does.
	makeDirs bool
}

func (f *fakeWorktrees) ListWorktrees(ctx context.Context, repoPath string) ([]git.WorktreeInfo, error) {
	return nil, nil
}

func (f *fakeWorktrees) CreateWorktree(ctx context.Context, basePath, worktreePath, branch string, createBranch bool) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.creates = append(f.creates, createCall{basePath, worktreePath, branch, createBranch})
	if f.makeDirs {
		if err := os.MkdirAll(worktreePath, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeWorktrees) RemoveWorktree(ctx context.Context, basePath, worktreePath string, force bool) error {
	if f.dirty && !force {
		return errors.WorktreeDirty(worktreePath)
	}
	f.removes = append(f.removes, removeCall{worktreePath, force})
	return nil
}

func (f *fakeWorktrees) IsWorktreeDirty(ctx context.Context, worktreePath string) (bool, error) {
	return f.dirty, nil
}

func (f *fakeWorktrees) GetCurrentBranch(ctx context.Context, dir string) (string, error) {
	return f.currentBranch, nil
}

func (f *fakeWorktrees) ListBranches(ctx context.Context, repoPath, prefix string) ([]string, error) {
	var out []string
	for b := range f.branches {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeWorktrees) BranchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	return f.branches[branch], nil
}

func (f *fakeWorktrees) DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error {
	delete(f.branches, branch)
	return nil
}

type fakeRepo struct {
	root      string
	projectID string
}

func (f *fakeRepo) IsGitRepo(ctx context.Context, dir string) bool { return true }

func (f *fakeRepo) GetGitRoot(ctx context.Context, dir string) (string, error) {
	return f.root, nil
}

func (f *fakeRepo) GetProjectID(ctx context.Context, dir string) (string, error) {
	return f.projectID, nil
}

type spawnCall struct {
	dir     string
	command string
	title   string
}

type fakeBackend struct {
	terminalType models.TerminalType
	spawns       []spawnCall
	closed       []string
	focused      []string
	spawnErr     error
	nextWindowID string
}

func (f *fakeBackend) Type() models.TerminalType { return f.terminalType }

func (f *fakeBackend) Spawn(ctx context.Context, dir, command, title string) (*terminal.SpawnResult, error) {
	if f.spawnErr != nil {
		return nil, f.spawnErr
	}
	f.spawns = append(f.spawns, spawnCall{dir, command, title})
	return &terminal.SpawnResult{WindowID: f.nextWindowID}, nil
}

func (f *fakeBackend) CloseWindow(ctx context.Context, windowID string) error {
	f.closed = append(f.closed, windowID)
	return nil
}

func (f *fakeBackend) FocusWindow(ctx context.Context, windowID string) error {
	f.focused = append(f.focused, windowID)
	return nil
}

type fakeTable struct {
	procs []proc.Info
}

func (f *fakeTable) List(ctx context.Context) ([]proc.Info, error) {
	return f.procs, nil
}

// --- harness ---

type harness struct {
	manager   *Manager
	store     *store.MemoryStore
	worktrees *fakeWorktrees
	backend   *fakeBackend
	table     *fakeTable
	cfg       *config.Config
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Paths.WorktreeRoot = t.TempDir()
	cfg.Terminal.Preferred = "iterm"
	cfg.Terminal.SpawnDelay = config.Duration(0)

	h := &harness{
		store:     store.NewMemoryStore(),
		worktrees: &fakeWorktrees{currentBranch: "main", branches: map[string]bool{"main": true}, makeDirs: true},
		backend:   &fakeBackend{terminalType: models.TerminalITerm, nextWindowID: "7"},
		table:     &fakeTable{},
		cfg:       cfg,
		now:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	tracker := proc.NewTracker(h.table, proc.TrackerOptions{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Sleep:       func(time.Duration) {},
	})

	manager, err := NewManager(cfg, "/repo", Deps{
		Store:     h.store,
		Allocator: ports.NewAllocator(cfg.Ports.PortsPerSession, cfg.Ports.SearchLimit),
		Tracker:   tracker,
		Table:     h.table,
		Worktrees: h.worktrees,
		Repo:      &fakeRepo{root: "/repo", projectID: "myproject"},
		Runner:    nil,
		NewBackend: func(t models.TerminalType) (terminal.Backend, error) {
			return h.backend, nil
		},
		Sleep: func(time.Duration) {},
		Now:   func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.manager = manager
	return h
}

// agentProcess seeds the fake table with a process the tracker will match for
// the given worktree.
func (h *harness) agentProcess(pid int, name, worktreePath string) {
	h.table.procs = append(h.table.procs, proc.Info{
		PID:       pid,
		Name:      name,
		Cmdline:   name + " --cwd " + worktreePath,
		StartTime: h.now.Add(-time.Second),
	})
}

// --- tests ---

func TestCreateSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wantWorktree := filepath.Join(h.cfg.Paths.WorktreeRoot, "myproject", "feature-x")
	h.agentProcess(4242, "claude", wantWorktree)

	session, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "feature-x", session.Branch)
	assert.Equal(t, "myproject", session.ProjectID)
	assert.Equal(t, wantWorktree, session.WorktreePath)
	assert.Equal(t, models.StatusActive, session.Status)
	assert.Equal(t, models.PortRange{Start: 3000, End: 3009}, session.PortRange)
	assert.Equal(t, models.TerminalITerm, session.TerminalType)
	assert.Equal(t, "7", session.TerminalWindowID)

	require.NotNil(t, session.ProcessID)
	assert.Equal(t, 4242, *session.ProcessID)
	assert.Equal(t, "claude", session.ProcessName)
	require.NotNil(t, session.LastActivity)

	// A new branch is created for the worktree.
	require.Len(t, h.worktrees.creates, 1)
	assert.True(t, h.worktrees.creates[0].createBranch)
	assert.Equal(t, "/repo", h.worktrees.creates[0].basePath)

	// The spawned command carries the reserved port range.
	require.Len(t, h.backend.spawns, 1)
	assert.Equal(t, wantWorktree, h.backend.spawns[0].dir)
	assert.Equal(t, "PORT=3000 PORT_RANGE_START=3000 PORT_RANGE_END=3009 claude", h.backend.spawns[0].command)
	assert.Contains(t, h.backend.spawns[0].title, "feature-x")

	// Persisted.
	stored, err := h.store.LoadByBranch("feature-x")
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
}

func TestCreateRejectsDuplicateBranch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	_, err = h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeBranchExists))
}

func TestCreateRejectsInvalidBranch(t *testing.T) {
	h := newHarness(t)

	for _, branch := range []string{"", "feat ure", "feat;rm -rf /", "-flag", "a..b"} {
		_, err := h.manager.Create(context.Background(), CreateRequest{Branch: branch, Agent: "claude-code"})
		require.Error(t, err, "branch %q", branch)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidBranch), "branch %q got %v", branch, err)
	}
}

func TestCreateRejectsEmptyAgent(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Create(context.Background(), CreateRequest{Branch: "feature-x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestCreateAllocatesDisjointPorts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.manager.Create(ctx, CreateRequest{Branch: "one", Agent: "claude-code"})
	require.NoError(t, err)
	second, err := h.manager.Create(ctx, CreateRequest{Branch: "two", Agent: "claude-code"})
	require.NoError(t, err)

	assert.Equal(t, models.PortRange{Start: 3000, End: 3009}, first.PortRange)
	assert.Equal(t, models.PortRange{Start: 3010, End: 3019}, second.PortRange)
	assert.False(t, first.PortRange.Overlaps(second.PortRange))
}

func TestCreateReusesExistingBranch(t *testing.T) {
	h := newHarness(t)
	h.worktrees.branches["feature-x"] = true

	_, err := h.manager.Create(context.Background(), CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	require.Len(t, h.worktrees.creates, 1)
	assert.False(t, h.worktrees.creates[0].createBranch)
}

func TestCreateOnCurrentBranchSkipsBranchCreation(t *testing.T) {
	h := newHarness(t)
	h.worktrees.currentBranch = "feature-x"

	_, err := h.manager.Create(context.Background(), CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	require.Len(t, h.worktrees.creates, 1)
	assert.False(t, h.worktrees.creates[0].createBranch)
}

func TestCreateSpawnFailureCarriesWorktreeContext(t *testing.T) {
	h := newHarness(t)
	h.backend.spawnErr = errors.SpawnFailed("iterm", assert.AnError, "osascript said no")

	_, err := h.manager.Create(context.Background(), CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.Error(t, err)

	var aviaryErr *errors.AviaryError
	require.ErrorAs(t, err, &aviaryErr)
	assert.Equal(t, "feature-x", aviaryErr.Details["branch"])
	assert.Equal(t, filepath.Join(h.cfg.Paths.WorktreeRoot, "myproject", "feature-x"), aviaryErr.Details["worktreePath"])

	// The failed session must not be persisted.
	_, err = h.store.LoadByBranch("feature-x")
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}

func TestCreateWithoutTrackableProcess(t *testing.T) {
	h := newHarness(t)

	// Table never shows the agent; the session is still created, degraded.
	session, err := h.manager.Create(context.Background(), CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)
	assert.Nil(t, session.ProcessID)
	assert.Equal(t, models.StatusActive, session.Status)
}

func TestCreateCommandOverride(t *testing.T) {
	h := newHarness(t)

	session, err := h.manager.Create(context.Background(), CreateRequest{
		Branch:          "feature-x",
		Agent:           "claude-code",
		CommandOverride: "claude --resume",
	})
	require.NoError(t, err)
	assert.Equal(t, "claude --resume", session.Command)
	assert.Contains(t, h.backend.spawns[0].command, "claude --resume")
}

func TestRestartPreservesIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wantWorktree := filepath.Join(h.cfg.Paths.WorktreeRoot, "myproject", "feature-x")
	h.agentProcess(4242, "claude", wantWorktree)

	created, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	// Simulate a crash and a new process after restart.
	h.table.procs = nil
	h.agentProcess(5555, "claude", wantWorktree)
	h.now = h.now.Add(time.Hour)
	h.backend.nextWindowID = "9"

	restarted, err := h.manager.Restart(ctx, "feature-x")
	require.NoError(t, err)

	assert.Equal(t, created.ID, restarted.ID)
	assert.Equal(t, created.CreatedAt, restarted.CreatedAt)
	assert.Equal(t, created.PortRange, restarted.PortRange)
	assert.Equal(t, created.WorktreePath, restarted.WorktreePath)

	require.NotNil(t, restarted.ProcessID)
	assert.Equal(t, 5555, *restarted.ProcessID)
	assert.Equal(t, "9", restarted.TerminalWindowID)
	assert.Equal(t, models.StatusActive, restarted.Status)
	require.NotNil(t, restarted.LastActivity)
	assert.Equal(t, h.now, *restarted.LastActivity)

	// No new worktree, no new ports.
	assert.Len(t, h.worktrees.creates, 1)
	// Old window closed before respawn.
	assert.Equal(t, []string{"7"}, h.backend.closed)
}

func TestRestartMissingWorktree(t *testing.T) {
	h := newHarness(t)

	sess := &models.Session{
		ID:           "id-1",
		Branch:       "gone",
		Agent:        "claude-code",
		Command:      "claude",
		ProjectID:    "myproject",
		WorktreePath: filepath.Join(h.cfg.Paths.WorktreeRoot, "myproject", "gone"),
		Status:       models.StatusStopped,
		CreatedAt:    h.now,
		PortRange:    models.PortRange{Start: 3000, End: 3009},
		TerminalType: models.TerminalITerm,
	}
	require.NoError(t, h.store.Save(sess))

	_, err := h.manager.Restart(context.Background(), "gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worktree is missing")
}

func TestRestartUnknownBranch(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Restart(context.Background(), "nope")
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}

func TestDestroySession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	require.NoError(t, h.manager.Destroy(ctx, "feature-x", false))

	assert.Equal(t, []string{"7"}, h.backend.closed)
	require.Len(t, h.worktrees.removes, 1)
	assert.Equal(t, session.WorktreePath, h.worktrees.removes[0].worktreePath)
	assert.False(t, h.worktrees.removes[0].force)

	_, err = h.store.LoadByBranch("feature-x")
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}

func TestDestroyDirtyWorktreeNeedsForce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)
	h.worktrees.dirty = true

	err = h.manager.Destroy(ctx, "feature-x", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeWorktreeDirty))

	// Session survives the failed destroy and can be force-destroyed.
	_, err = h.store.LoadByBranch("feature-x")
	require.NoError(t, err)

	require.NoError(t, h.manager.Destroy(ctx, "feature-x", true))
	_, err = h.store.LoadByBranch("feature-x")
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}

func TestDestroyWithMissingWorktree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.worktrees.makeDirs = false
	_, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	// The worktree directory never existed on disk; destroy still removes
	// the session file without calling git.
	require.NoError(t, h.manager.Destroy(ctx, "feature-x", false))
	assert.Empty(t, h.worktrees.removes)

	_, err = h.store.LoadByBranch("feature-x")
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}

func TestListIsScopedToProject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, CreateRequest{Branch: "ours", Agent: "claude-code"})
	require.NoError(t, err)

	other := &models.Session{
		ID: "other-id", Branch: "theirs", Agent: "codex", Command: "codex",
		ProjectID: "otherproject", WorktreePath: "/tmp/elsewhere",
		Status: models.StatusActive, CreatedAt: h.now,
		PortRange: models.PortRange{Start: 3000, End: 3009},
	}
	require.NoError(t, h.store.Save(other))

	sessions, err := h.manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "ours", sessions[0].Branch)
}

func TestFocusRecordsActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	h.now = h.now.Add(30 * time.Minute)
	require.NoError(t, h.manager.Focus(ctx, "feature-x"))

	assert.Equal(t, []string{"7"}, h.backend.focused)
	stored, err := h.store.LoadByBranch("feature-x")
	require.NoError(t, err)
	require.NotNil(t, stored.LastActivity)
	assert.Equal(t, h.now, *stored.LastActivity)
}

func TestSetNote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Create(ctx, CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.NoError(t, err)

	require.NoError(t, h.manager.SetNote(ctx, "feature-x", "waiting on review"))
	stored, err := h.store.LoadByBranch("feature-x")
	require.NoError(t, err)
	assert.Equal(t, "waiting on review", stored.Note)
}

func TestHealthReports(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wantWorktree := filepath.Join(h.cfg.Paths.WorktreeRoot, "myproject", "alive")
	h.agentProcess(4242, "claude", wantWorktree)

	_, err := h.manager.Create(ctx, CreateRequest{Branch: "alive", Agent: "claude-code"})
	require.NoError(t, err)

	// The tracked process vanished from the table.
	report, err := h.manager.HealthOne(ctx, "alive")
	require.NoError(t, err)
	h.table.procs = nil
	report, err = h.manager.HealthOne(ctx, "alive")
	require.NoError(t, err)
	assert.Equal(t, health.StatusCrashed, report.Status)

	reports, err := h.manager.HealthAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "alive", reports[0].Session.Branch)
}

func TestCreateWorktreeFailureNotPersisted(t *testing.T) {
	h := newHarness(t)
	h.worktrees.createErr = errors.GitFailed("worktree add", assert.AnError, "fatal: already exists")

	_, err := h.manager.Create(context.Background(), CreateRequest{Branch: "feature-x", Agent: "claude-code"})
	require.Error(t, err)

	_, err = h.store.LoadByBranch("feature-x")
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}
