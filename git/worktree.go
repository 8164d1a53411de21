package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/aviary/command"
	"github.com/grovetools/aviary/errors"
)

// WorktreeInfo contains information about a git worktree
type WorktreeInfo struct {
	Path   string
	Branch string
	Commit string
	Bare   bool
}

// WorktreeManager manages git worktrees
type WorktreeManager struct {
	cmdBuilder *command.SafeBuilder
}

// Ensure it implements the interface
var _ WorktreeProvider = (*WorktreeManager)(nil)

// NewWorktreeManager creates a new worktree manager
func NewWorktreeManager() *WorktreeManager {
	return &WorktreeManager{
		cmdBuilder: command.NewSafeBuilder(),
	}
}

// NewWorktreeManagerWithExecutor creates a worktree manager with a custom
// executor, for tests.
func NewWorktreeManagerWithExecutor(exec command.Executor) *WorktreeManager {
	return &WorktreeManager{
		cmdBuilder: command.NewSafeBuilderWithExecutor(exec),
	}
}

// ListWorktrees returns all worktrees for the repository at repoPath
func (m *WorktreeManager) ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeInfo, error) {
	cmd, err := m.cmdBuilder.Build(ctx, "git", "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	output, err := execCmd.Output()
	if err != nil {
		return nil, errors.GitFailed("worktree list", err, string(output))
	}

	return parseWorktreeList(string(output)), nil
}

// CreateWorktree creates a new worktree. With createBranch set, a new branch
// is created at HEAD; otherwise the existing branch is checked out. When the
// repository is already on the target branch, callers should pass
// createBranch=false so git does not refuse the redundant branch creation.
func (m *WorktreeManager) CreateWorktree(ctx context.Context, basePath, worktreePath, branch string, createBranch bool) error {
	if err := m.cmdBuilder.Validate("gitRef", branch); err != nil {
		return errors.InvalidBranch(branch, err.Error())
	}

	args := []string{"worktree", "add"}

	if createBranch {
		args = append(args, "-b", branch)
	}

	args = append(args, worktreePath)

	if !createBranch {
		args = append(args, branch)
	}

	cmd, err := m.cmdBuilder.Build(ctx, "git", args...)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = basePath

	output, err := execCmd.CombinedOutput()
	if err != nil {
		return errors.GitFailed(strings.Join(args, " "), err, string(output)).
			WithDetail("branch", branch).
			WithDetail("worktreePath", worktreePath)
	}

	return nil
}

// RemoveWorktree removes a worktree. Without force, git refuses to remove a
// worktree with uncommitted changes; that refusal is surfaced as a
// WORKTREE_DIRTY error.
func (m *WorktreeManager) RemoveWorktree(ctx context.Context, basePath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)

	cmd, err := m.cmdBuilder.Build(ctx, "git", args...)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = basePath

	output, err := execCmd.CombinedOutput()
	if err != nil {
		if !force && strings.Contains(string(output), "contains modified or untracked files") {
			return errors.WorktreeDirty(worktreePath)
		}
		return errors.GitFailed(strings.Join(args, " "), err, string(output)).
			WithDetail("worktreePath", worktreePath)
	}

	return nil
}

// IsWorktreeDirty reports whether the worktree has uncommitted changes
func (m *WorktreeManager) IsWorktreeDirty(ctx context.Context, worktreePath string) (bool, error) {
	cmd, err := m.cmdBuilder.Build(ctx, "git", "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = worktreePath

	output, err := execCmd.Output()
	if err != nil {
		return false, errors.GitFailed("status --porcelain", err, string(output))
	}

	return strings.TrimSpace(string(output)) != "", nil
}

// GetCurrentBranch returns the branch checked out in dir
func (m *WorktreeManager) GetCurrentBranch(ctx context.Context, dir string) (string, error) {
	cmd, err := m.cmdBuilder.Build(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = dir

	output, err := execCmd.Output()
	if err != nil {
		return "", errors.GitFailed("rev-parse --abbrev-ref HEAD", err, string(output))
	}

	return strings.TrimSpace(string(output)), nil
}

// ListBranches returns local branch names, optionally filtered by prefix
func (m *WorktreeManager) ListBranches(ctx context.Context, repoPath, prefix string) ([]string, error) {
	cmd, err := m.cmdBuilder.Build(ctx, "git", "branch", "--list", "--format=%(refname:short)")
	if err != nil {
		return nil, fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	output, err := execCmd.Output()
	if err != nil {
		return nil, errors.GitFailed("branch --list", err, string(output))
	}

	var branches []string
	for _, line := range strings.Split(string(output), "\n") {
		branch := strings.TrimSpace(line)
		if branch == "" {
			continue
		}
		if prefix == "" || strings.HasPrefix(branch, prefix) {
			branches = append(branches, branch)
		}
	}

	return branches, nil
}

// BranchExists reports whether a local branch exists
func (m *WorktreeManager) BranchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	if err := m.cmdBuilder.Validate("gitRef", branch); err != nil {
		return false, errors.InvalidBranch(branch, err.Error())
	}

	cmd, err := m.cmdBuilder.Build(ctx, "git", "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	if err != nil {
		return false, fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	if err := execCmd.Run(); err != nil {
		// rev-parse --verify exits non-zero when the ref does not exist
		return false, nil
	}
	return true, nil
}

// DeleteBranch deletes a local branch. With force, unmerged branches are
// deleted too.
func (m *WorktreeManager) DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error {
	if err := m.cmdBuilder.Validate("gitRef", branch); err != nil {
		return errors.InvalidBranch(branch, err.Error())
	}

	flag := "-d"
	if force {
		flag = "-D"
	}

	cmd, err := m.cmdBuilder.Build(ctx, "git", "branch", flag, branch)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	output, err := execCmd.CombinedOutput()
	if err != nil {
		return errors.GitFailed("branch "+flag, err, string(output)).
			WithDetail("branch", branch)
	}

	return nil
}

// parseWorktreeList parses git worktree list --porcelain output
func parseWorktreeList(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo
	lines := strings.Split(output, "\n")

	var current WorktreeInfo
	for _, line := range lines {
		if line == "" {
			if current.Path != "" {
				worktrees = append(worktrees, current)
				current = WorktreeInfo{}
			}
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 1 {
			if parts[0] == "bare" {
				current.Bare = true
			}
			continue
		}

		switch parts[0] {
		case "worktree":
			current.Path = parts[1]
		case "HEAD":
			current.Commit = parts[1]
		case "branch":
			current.Branch = strings.TrimPrefix(parts[1], "refs/heads/")
		}
	}

	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	return worktrees
}
