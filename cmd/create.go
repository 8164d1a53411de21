package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
	"github.com/grovetools/aviary/pkg/session"
)

// NewCreateCmd creates the `create` command
func NewCreateCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"create <branch>",
		"Create a session: worktree, ports, terminal window, tracked agent",
	)
	cmd.Long = `Create a new agent session for a branch. Aviary creates an isolated git
worktree, reserves a port range, opens a terminal window running the agent,
and tracks the agent process.`
	cmd.Args = cobra.ExactArgs(1)

	var agent, commandOverride, note string
	cmd.Flags().StringVarP(&agent, "agent", "a", "claude-code", "Agent to run in the session")
	cmd.Flags().StringVar(&commandOverride, "command", "", "Override the agent's launch command")
	cmd.Flags().StringVar(&note, "note", "", "Free-text note attached to the session")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return handleError(cmd, err)
		}

		sess, err := manager.Create(cmd.Context(), session.CreateRequest{
			Branch:          args[0],
			Agent:           agent,
			CommandOverride: commandOverride,
			Note:            note,
		})
		if err != nil {
			return handleError(cmd, err)
		}

		fmt.Printf("Created session for %s\n", branchStyle.Render(sess.Branch))
		fmt.Printf("  Worktree:  %s\n", pathStyle.Render(sess.WorktreePath))
		fmt.Printf("  Ports:     %s\n", sess.PortRange.String())
		fmt.Printf("  Terminal:  %s (window %s)\n", sess.TerminalType, sess.TerminalWindowID)
		if sess.ProcessID != nil {
			fmt.Printf("  Process:   %s (pid %d)\n", sess.ProcessName, *sess.ProcessID)
		} else {
			fmt.Printf("  Process:   %s\n", dimStyle.Render("not yet tracked"))
		}
		return nil
	}

	return cmd
}
