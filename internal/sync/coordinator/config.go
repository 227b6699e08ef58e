package coordinator

import (
	"time"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

// getSyncInterval returns the ticker period for a sync kind
func getSyncInterval(syncCfg *config.SyncConfig, kind status.SyncKind) time.Duration {
	if syncCfg == nil {
		syncCfg = &config.SyncConfig{}
	}

	switch kind {
	case status.SyncKindStats:
		return syncCfg.GetStatsInterval()
	default:
		return syncCfg.GetDistrictInterval()
	}
}

// getSyncOnStart reports whether both kinds run once before the tickers start
func getSyncOnStart(syncCfg *config.SyncConfig) bool {
	if syncCfg == nil {
		return true
	}
	return syncCfg.GetSyncOnStart()
}
