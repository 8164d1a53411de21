package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
	"github.com/grovetools/aviary/pkg/models"
)

// Styles for session display
var (
	branchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))
)

// NewListCmd creates the `list` command
func NewListCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"list",
		"Show sessions for the current project",
	)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return handleError(cmd, err)
		}

		sessions, err := manager.List(cmd.Context())
		if err != nil {
			return handleError(cmd, err)
		}

		opts := cli.GetOptions(cmd)
		if opts.JSONOutput {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(sessions)
		}

		if len(sessions) == 0 {
			fmt.Println(dimStyle.Render("No sessions. Run 'aviary create <branch>' to start one."))
			return nil
		}

		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		})

		for _, s := range sessions {
			fmt.Printf("%s  %s  %s  %s\n",
				branchStyle.Render(s.Branch),
				s.Agent,
				statusLabel(s.Status),
				s.PortRange.String(),
			)
			fmt.Printf("  %s\n", pathStyle.Render(s.WorktreePath))
			if !s.HasProcess() {
				fmt.Printf("  %s\n", stoppedStyle.Render("no tracked process"))
			}
			if s.Note != "" {
				fmt.Printf("  %s\n", dimStyle.Render(s.Note))
			}
		}
		return nil
	}

	return cmd
}

func statusLabel(s models.SessionStatus) string {
	if s == models.StatusActive {
		return activeStyle.Render(string(s))
	}
	return stoppedStyle.Render(string(s))
}
