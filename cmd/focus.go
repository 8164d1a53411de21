package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
)

// NewFocusCmd creates the `focus` command
func NewFocusCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"focus <branch>",
		"Bring the session's terminal window to the front",
	)
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return handleError(cmd, err)
		}
		return handleError(cmd, manager.Focus(cmd.Context(), args[0]))
	}

	return cmd
}
