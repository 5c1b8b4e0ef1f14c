package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"examsight/internal/config"
)

// commandContext carries shared flags and the lazily loaded config.
type commandContext struct {
	configFlag *string
	apiFlag    *string

	cfg *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

// apibase returns the control API address, preferring the --api flag.
func (c *commandContext) apiBase() (string, error) {
	if c.apiFlag != nil && *c.apiFlag != "" {
		return "http://" + *c.apiFlag, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return "http://" + cfg.Paths.APIBind, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var apiFlag string

	ctx := &commandContext{configFlag: &configFlag, apiFlag: &apiFlag}

	rootCmd := &cobra.Command{
		Use:           "examsight",
		Short:         "ExamSight live stream monitor CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Daemon API address (host:port)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newStreamCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
