package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grovetools/aviary/cli"
	"github.com/grovetools/aviary/pkg/cleanup"
)

// strategyValue parses and validates --strategy at flag-parse time.
type strategyValue cleanup.Strategy

var _ pflag.Value = (*strategyValue)(nil)

func (s *strategyValue) String() string { return string(*s) }

func (s *strategyValue) Set(v string) error {
	parsed, err := cleanup.ParseStrategy(v)
	if err != nil {
		names := make([]string, 0, len(cleanup.Strategies()))
		for _, known := range cleanup.Strategies() {
			names = append(names, string(known))
		}
		return fmt.Errorf("unknown strategy %q (one of: %s)", v, strings.Join(names, ", "))
	}
	*s = strategyValue(parsed)
	return nil
}

func (s *strategyValue) Type() string { return "strategy" }

// NewCleanupCmd creates the `cleanup` command
func NewCleanupCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"cleanup",
		"Find (and optionally delete) orphaned sessions, branches, worktrees",
	)
	cmd.Long = `Scan for orphans with a selectable strategy and report them. Nothing is
deleted unless --delete is passed; a failed deletion is reported and the
rest of the batch continues.`

	strategy := strategyValue(cleanup.StrategyAll)
	var maxAge time.Duration
	var doDelete bool
	cmd.Flags().VarP(&strategy, "strategy", "s", "Detection strategy")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Cutoff for the age strategy, e.g. 72h (0 disables it)")
	cmd.Flags().BoolVar(&doDelete, "delete", false, "Delete what the scan finds")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		detector, err := newDetector(cmd)
		if err != nil {
			return handleError(cmd, err)
		}

		report, err := detector.Scan(cmd.Context(), cleanup.Strategy(strategy), maxAge)
		if err != nil {
			return handleError(cmd, err)
		}

		if len(report.Items) == 0 {
			fmt.Println(dimStyle.Render("No orphans found."))
			return nil
		}

		for _, item := range report.Items {
			name := item.Branch
			if name == "" {
				name = item.Path
			}
			fmt.Printf("%s %s  %s\n", item.Kind, branchStyle.Render(name), dimStyle.Render(item.Reason))
		}

		if !doDelete {
			fmt.Printf("\n%d orphan(s) found. Re-run with --delete to remove them.\n", len(report.Items))
			return nil
		}

		summary := detector.Cleanup(cmd.Context(), report)
		fmt.Printf("\nRemoved %d orphan(s)", len(summary.Removed))
		if len(summary.Failed) > 0 {
			fmt.Printf(", %d failed:\n", len(summary.Failed))
			for _, f := range summary.Failed {
				name := f.Item.Branch
				if name == "" {
					name = f.Item.Path
				}
				fmt.Printf("  %s: %v\n", name, f.Err)
			}
		} else {
			fmt.Println()
		}
		return nil
	}

	return cmd
}
