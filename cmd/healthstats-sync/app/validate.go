package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config-file>",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(config.WithConfigPath(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (storage: %s)\n", cfg.Storage.Type)
		return nil
	},
}
