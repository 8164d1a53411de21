package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
	"github.com/grovetools/aviary/pkg/health"
)

var healthStyles = map[health.Status]lipgloss.Style{
	health.StatusWorking: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	health.StatusIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	health.StatusStuck:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	health.StatusCrashed: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	health.StatusUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// NewHealthCmd creates the `health` command
func NewHealthCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"health [branch]",
		"Classify sessions as working, idle, stuck, or crashed",
	)
	cmd.Args = cobra.MaximumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return handleError(cmd, err)
		}

		var reports []*health.Report
		if len(args) == 1 {
			report, err := manager.HealthOne(cmd.Context(), args[0])
			if err != nil {
				return handleError(cmd, err)
			}
			reports = append(reports, report)
		} else {
			reports, err = manager.HealthAll(cmd.Context())
			if err != nil {
				return handleError(cmd, err)
			}
		}

		opts := cli.GetOptions(cmd)
		if opts.JSONOutput {
			type entry struct {
				Branch string        `json:"branch"`
				Status health.Status `json:"status"`
			}
			entries := make([]entry, 0, len(reports))
			for _, r := range reports {
				entries = append(entries, entry{Branch: r.Session.Branch, Status: r.Status})
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(entries)
		}

		for _, r := range reports {
			style, ok := healthStyles[r.Status]
			if !ok {
				style = healthStyles[health.StatusUnknown]
			}
			fmt.Printf("%s  %s\n", branchStyle.Render(r.Session.Branch), style.Render(string(r.Status)))
		}
		return nil
	}

	return cmd
}
