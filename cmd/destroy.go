package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
)

// NewDestroyCmd creates the `destroy` command
func NewDestroyCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"destroy <branch>",
		"Close the window, remove the worktree, delete the session",
	)
	cmd.Args = cobra.ExactArgs(1)

	var force bool
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove the worktree even with uncommitted changes")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return handleError(cmd, err)
		}

		if err := manager.Destroy(cmd.Context(), args[0], force); err != nil {
			return handleError(cmd, err)
		}

		fmt.Printf("Destroyed session for %s\n", branchStyle.Render(args[0]))
		return nil
	}

	return cmd
}
