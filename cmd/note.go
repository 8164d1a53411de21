package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
)

// NewNoteCmd creates the `note` command
func NewNoteCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"note <branch> [text...]",
		"Attach a free-text note to a session",
	)
	cmd.Long = `Set the note shown by 'aviary list'. With no text, the note is cleared.`
	cmd.Args = cobra.MinimumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return handleError(cmd, err)
		}
		note := strings.Join(args[1:], " ")
		return handleError(cmd, manager.SetNote(cmd.Context(), args[0], note))
	}

	return cmd
}
