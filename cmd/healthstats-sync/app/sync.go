package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	syncapp "github.com/healthstats-bd/healthstats-sync/internal/app"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/coordinator"
)

var syncCmd = &cobra.Command{
	Use:       "sync [district|stats|all]",
	Short:     "Run one sync cycle and exit",
	Long:      `Run a single guarded district sync, stats sync, or both, without starting the scheduler.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(status.SyncKindDistrict), string(status.SyncKindStats), "all"},
	RunE:      runSyncOnce,
}

// kindsFromArg maps the sync argument to the kinds to run
func kindsFromArg(arg string) ([]status.SyncKind, error) {
	if arg == "all" {
		return status.AllKinds, nil
	}
	kind := status.SyncKind(arg)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown sync kind %q", arg)
	}
	return []status.SyncKind{kind}, nil
}

func runSyncOnce(cmd *cobra.Command, args []string) error {
	kinds, err := kindsFromArg(args[0])
	if err != nil {
		return err
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

	outcomes, err := app.RunOnce(ctx, kinds...)
	if err != nil {
		return err
	}

	return reportOutcomes(cmd, outcomes)
}

// reportOutcomes prints one line per outcome and joins the failures
func reportOutcomes(cmd *cobra.Command, outcomes []coordinator.Outcome) error {
	var errs []error
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: skipped, a sync is already running\n", o.Kind)
		case o.Err != nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: failed after %s: %v\n", o.Kind, o.Duration.Round(time.Millisecond), o.Err)
			errs = append(errs, fmt.Errorf("%s sync failed: %w", o.Kind, o.Err))
		case o.Result != nil && o.Result.HasUpdated:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: updated in %s\n", o.Kind, o.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: already up-to-date\n", o.Kind)
		}
	}
	return errors.Join(errs...)
}
