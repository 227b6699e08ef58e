package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	syncapp "github.com/healthstats-bd/healthstats-sync/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the sync state and stored records",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("format", "yaml", "Output format (yaml or json)")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := syncapp.NewSyncApp(ctx, syncapp.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build sync app: %w", err)
	}
	defer func() {
		if err := app.Stop(defaultGracefulTimeout); err != nil {
			slog.Warn("Failed to stop sync app", "error", err)
		}
	}()

	report, err := app.Status(ctx)
	if err != nil {
		return err
	}

	out, err := formatReport(report, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func formatReport(report *syncapp.StatusReport, format string) ([]byte, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to format status as JSON: %w", err)
		}
		return append(out, '\n'), nil
	case "yaml", "":
		out, err := yaml.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("failed to format status as YAML: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}
