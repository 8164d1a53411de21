package cli

import (
	"fmt"
	"os"

	"github.com/grovetools/aviary/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeSessionNotFound:
		if avErr, ok := err.(*errors.AviaryError); ok {
			fmt.Fprintf(os.Stderr, "❌ No session for branch '%s'\n", avErr.Details["branch"])
			fmt.Fprintf(os.Stderr, "Run 'aviary list' to see active sessions.\n")
		}
		return err

	case errors.ErrCodeBranchExists:
		if avErr, ok := err.(*errors.AviaryError); ok {
			fmt.Fprintf(os.Stderr, "❌ A session already exists for branch '%s'\n", avErr.Details["branch"])
			fmt.Fprintf(os.Stderr, "Use 'aviary restart %s' or destroy it first.\n", avErr.Details["branch"])
		}
		return err

	case errors.ErrCodePortExhausted:
		if avErr, ok := err.(*errors.AviaryError); ok {
			fmt.Fprintf(os.Stderr, "❌ No free port range found after scanning %v windows from port %v\n",
				avErr.Details["windowsSearched"], avErr.Details["basePort"])
			fmt.Fprintf(os.Stderr, "Destroy unused sessions or raise ports.search_limit in the config.\n")
		}
		return err

	case errors.ErrCodeWorktreeDirty:
		if avErr, ok := err.(*errors.AviaryError); ok {
			fmt.Fprintf(os.Stderr, "❌ Worktree %s has uncommitted changes\n", avErr.Details["path"])
			fmt.Fprintf(os.Stderr, "Commit or stash them, or pass --force to discard.\n")
		}
		return err

	case errors.ErrCodeSpawnFailed:
		fmt.Fprintf(os.Stderr, "❌ Could not open a terminal window: %v\n", err)
		return err

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		return err

	case errors.ErrCodeGitNotInstalled:
		fmt.Fprintf(os.Stderr, "❌ git is not installed or not on PATH\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		if h.Verbose {
			if avErr, ok := err.(*errors.AviaryError); ok && len(avErr.Details) > 0 {
				fmt.Fprintf(os.Stderr, "Details: %s\n", avErr.ToJSON())
			}
		}
		return err
	}
}
