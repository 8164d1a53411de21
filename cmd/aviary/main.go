package main

import (
	"os"

	"github.com/grovetools/aviary/cli"
	"github.com/grovetools/aviary/cmd"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"aviary",
		"Run parallel AI coding agents in isolated git worktrees",
	)

	// Add subcommands
	rootCmd.AddCommand(cmd.NewCreateCmd())
	rootCmd.AddCommand(cmd.NewListCmd())
	rootCmd.AddCommand(cmd.NewRestartCmd())
	rootCmd.AddCommand(cmd.NewDestroyCmd())
	rootCmd.AddCommand(cmd.NewFocusCmd())
	rootCmd.AddCommand(cmd.NewNoteCmd())
	rootCmd.AddCommand(cmd.NewHealthCmd())
	rootCmd.AddCommand(cmd.NewCleanupCmd())
	rootCmd.AddCommand(cli.NewVersionCommand("aviary"))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
