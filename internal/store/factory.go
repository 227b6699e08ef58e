package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
)

// Open creates the store selected by cfg.Type
func Open(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage configuration is required")
	}

	switch cfg.Type {
	case config.StorageTypeMemory:
		slog.Info("Using in-memory storage")
		return NewMemoryStore(), nil
	case config.StorageTypeFile:
		if cfg.File == nil {
			return nil, fmt.Errorf("file configuration is required for storage type %s", cfg.Type)
		}
		slog.Info("Using file storage", "path", cfg.File.Path)
		return NewFileStore(cfg.File.Path)
	case config.StorageTypeDatabase:
		slog.Info("Using database storage")
		return OpenPostgresStore(ctx, cfg.Database)
	case config.StorageTypeMongo:
		if cfg.Mongo == nil {
			return nil, fmt.Errorf("mongo configuration is required for storage type %s", cfg.Type)
		}
		slog.Info("Using MongoDB storage", "database", cfg.Mongo.Database)
		return ConnectMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
