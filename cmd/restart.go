package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
)

// NewRestartCmd creates the `restart` command
func NewRestartCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"restart <branch>",
		"Re-spawn the agent in an existing session",
	)
	cmd.Long = `Restart a session's agent in its existing worktree. The worktree, port
range, and session identity are preserved; only the terminal window and the
tracked process are replaced.`
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return handleError(cmd, err)
		}

		sess, err := manager.Restart(cmd.Context(), args[0])
		if err != nil {
			return handleError(cmd, err)
		}

		fmt.Printf("Restarted session for %s\n", branchStyle.Render(sess.Branch))
		if sess.ProcessID != nil {
			fmt.Printf("  Process:   %s (pid %d)\n", sess.ProcessName, *sess.ProcessID)
		}
		return nil
	}

	return cmd
}
