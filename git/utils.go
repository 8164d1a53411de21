package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grovetools/aviary/command"
	"github.com/grovetools/aviary/errors"
)

// Repository provides general repository-level queries
type Repository struct {
	cmdBuilder *command.SafeBuilder
}

var _ RepositoryProvider = (*Repository)(nil)

// NewRepository creates a repository query helper
func NewRepository() *Repository {
	return &Repository{cmdBuilder: command.NewSafeBuilder()}
}

// NewRepositoryWithExecutor creates a repository helper with a custom executor
func NewRepositoryWithExecutor(exec command.Executor) *Repository {
	return &Repository{cmdBuilder: command.NewSafeBuilderWithExecutor(exec)}
}

// IsGitRepo checks if the given directory is inside a git repository
func (r *Repository) IsGitRepo(ctx context.Context, dir string) bool {
	cmd, err := r.cmdBuilder.Build(ctx, "git", "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	return execCmd.Run() == nil
}

// GetGitRoot returns the root directory of the git repository
func (r *Repository) GetGitRoot(ctx context.Context, dir string) (string, error) {
	cmd, err := r.cmdBuilder.Build(ctx, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	output, err := execCmd.Output()
	if err != nil {
		return "", errors.GitFailed("rev-parse --show-toplevel", err, string(output))
	}

	return strings.TrimSpace(string(output)), nil
}

// GetProjectID derives the project identifier from the repository directory.
// Sessions created from the same repository share a project ID, which scopes
// branch uniqueness and port allocation.
func (r *Repository) GetProjectID(ctx context.Context, dir string) (string, error) {
	root, err := r.GetGitRoot(ctx, dir)
	if err != nil {
		return "", err
	}
	return filepath.Base(root), nil
}
