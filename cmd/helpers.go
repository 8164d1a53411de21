package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/grovetools/aviary/cli"
	"github.com/grovetools/aviary/config"
	"github.com/grovetools/aviary/pkg/cleanup"
	"github.com/grovetools/aviary/pkg/session"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := cli.GetOptions(cmd)
	var cfg *config.Config
	var err error
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newManager(cmd *cobra.Command) (*session.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return session.NewManager(cfg, cwd, session.Deps{})
}

func newDetector(cmd *cobra.Command) (*cleanup.Detector, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return cleanup.NewDetector(cfg, cwd, cleanup.DetectorOptions{})
}

func handleError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	opts := cli.GetOptions(cmd)
	return cli.NewErrorHandler(opts.Verbose).Handle(err)
}
