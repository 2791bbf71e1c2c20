package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conspect/internal/config"
)

type cliContext struct {
	configPath string
	cfg        *config.Config
}

// loadConfig resolves configuration lazily so config-independent commands
// (like config init) work without a valid file.
func (c *cliContext) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	cli := &cliContext{}

	root := &cobra.Command{
		Use:           "conspect",
		Short:         "Convert shared video lectures into PDF summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cli.configPath, "config", "", "path to config file")

	root.AddCommand(
		newAddCommand(cli),
		newListCommand(cli),
		newShowCommand(cli),
		newConfigCommand(cli),
	)
	return root
}
