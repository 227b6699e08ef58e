package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/healthstats-bd/healthstats-sync/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back database migrations",
	Long: `Roll back the given number of migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Roll back the latest migration
  healthstats-sync migrate down --config config.yaml --num-steps 1 --yes`,
	RunE: runMigrateDown,
}

func init() {
	migrateDownCmd.Flags().IntP("num-steps", "n", 1, "Number of migrations to roll back")
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	steps, err := cmd.Flags().GetInt("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	if steps <= 0 {
		return fmt.Errorf("num-steps must be positive, got %d", steps)
	}

	_, connString, err := migrationConnString()
	if err != nil {
		return err
	}

	ok, err := confirm(cmd, fmt.Sprintf("WARNING: This will roll back %d migration(s) and may result in data loss. Continue?", steps))
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
		return nil
	}

	if err := database.MigrateDown(connString, steps); err != nil {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}
