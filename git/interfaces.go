package git

import "context"

// WorktreeProvider defines the interface for git worktree operations
type WorktreeProvider interface {
	ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeInfo, error)
	CreateWorktree(ctx context.Context, basePath, worktreePath, branch string, createBranch bool) error
	RemoveWorktree(ctx context.Context, basePath, worktreePath string, force bool) error
	IsWorktreeDirty(ctx context.Context, worktreePath string) (bool, error)
	GetCurrentBranch(ctx context.Context, dir string) (string, error)
	ListBranches(ctx context.Context, repoPath, prefix string) ([]string, error)
	BranchExists(ctx context.Context, repoPath, branch string) (bool, error)
	DeleteBranch(ctx context.Context, repoPath, branch string, force bool) error
}

// RepositoryProvider defines the interface for general git repository operations
type RepositoryProvider interface {
	IsGitRepo(ctx context.Context, dir string) bool
	GetGitRoot(ctx context.Context, dir string) (string, error)
	GetProjectID(ctx context.Context, dir string) (string, error)
}
