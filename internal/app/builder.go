package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/httpclient"
	"github.com/healthstats-bd/healthstats-sync/internal/sources"
	"github.com/healthstats-bd/healthstats-sync/internal/store"
	pkgsync "github.com/healthstats-bd/healthstats-sync/internal/sync"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/coordinator"
	"github.com/healthstats-bd/healthstats-sync/internal/sync/state"
	"github.com/healthstats-bd/healthstats-sync/internal/telemetry"
	"github.com/healthstats-bd/healthstats-sync/internal/timeparse"
)

// TracerName is the instrumentation name used for sync spans
const TracerName = "github.com/healthstats-bd/healthstats-sync/sync"

// SyncAppOptions is a function that configures the sync app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig collects the builder inputs.
// It supports dependency injection for testing while providing sensible defaults for production.
type syncAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	store       store.Store
	httpClient  httpclient.Client
	syncManager pkgsync.Manager

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return cfg, nil
}

// NewSyncApp builds the application from its configuration
func NewSyncApp(
	ctx context.Context,
	opts ...SyncAppOptions,
) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.store == nil {
		cfg.store, err = store.Open(ctx, &cfg.config.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			_ = cfg.store.Close()
		}
	}()

	stateService := state.NewStateService(cfg.store,
		state.WithStaleAfter(cfg.config.Sync.GetStaleGuardAfter()))

	syncCoordinator, err := buildSyncComponents(cfg, stateService)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	// Cleanup is now handled by the app, not in defer
	cleanupNeeded = false

	st := cfg.store
	cancelFunc := func() {
		cancel()
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}

	return &SyncApp{
		config: cfg.config,
		components: &AppComponents{
			SyncCoordinator: syncCoordinator,
			StateService:    stateService,
			Store:           cfg.store,
		},
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithStore allows injecting an already open store
func WithStore(st store.Store) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if st == nil {
			return fmt.Errorf("store cannot be nil")
		}
		cfg.store = st
		return nil
	}
}

// WithHTTPClient allows injecting the client used to reach the sources (for testing)
func WithHTTPClient(c httpclient.Client) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for sync metrics
func WithMeterProvider(mp metric.MeterProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for sync spans
func WithTracerProvider(tp trace.TracerProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// buildSyncComponents builds the source fetcher, sync manager and coordinator
func buildSyncComponents(
	b *syncAppConfig,
	stateService state.SyncStateService,
) (coordinator.Coordinator, error) {
	slog.Info("Initializing sync components")

	var tracer trace.Tracer
	if b.tracerProvider != nil {
		tracer = b.tracerProvider.Tracer(TracerName)
	}

	if b.syncManager == nil {
		if b.httpClient == nil {
			b.httpClient = httpclient.NewDefaultClient(
				b.config.HTTP.GetTimeout(),
				httpclient.WithMaxAttempts(b.config.HTTP.GetMaxAttempts()),
				httpclient.WithInitialBackoff(b.config.HTTP.GetInitialBackoff()),
			)
		}

		fetcher := sources.NewFetcher(b.httpClient, &b.config.Sources)
		parser := timeparse.New(
			timeparse.WithUTCOffset(b.config.Sync.GetReportUTCOffset()),
			timeparse.WithLogger(slog.Default().With("component", "timeparse")),
		)

		managerOpts := []pkgsync.ManagerOption{
			pkgsync.WithFreezeWindowDuration(b.config.Sync.GetFreezeWindow()),
		}
		if tracer != nil {
			managerOpts = append(managerOpts, pkgsync.WithTracer(tracer))
		}
		b.syncManager = pkgsync.NewDefaultSyncManager(fetcher, fetcher, b.store, parser, managerOpts...)
	}

	var coordOpts []coordinator.Option
	if tracer != nil {
		coordOpts = append(coordOpts, coordinator.WithTracer(tracer))
	}

	// Create metrics if meter provider is configured
	if b.meterProvider != nil {
		syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}
		if syncMetrics != nil {
			coordOpts = append(coordOpts, coordinator.WithSyncMetrics(syncMetrics))
			slog.Info("Sync metrics enabled")
		}

		regionMetrics, err := telemetry.NewRegionMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create region metrics: %w", err)
		}
		if regionMetrics != nil {
			coordOpts = append(coordOpts, coordinator.WithRegionMetrics(regionMetrics))
			slog.Info("Region metrics enabled")
		}
	}

	syncCoordinator := coordinator.New(b.syncManager, stateService, &b.config.Sync, coordOpts...)
	slog.Info("Sync components initialized successfully")

	return syncCoordinator, nil
}
