package sources

import (
	"context"
	"errors"

	"github.com/healthstats-bd/healthstats-sync/internal/sanitize"
)

var (
	// ErrNotFound is returned when an expected page element or link is missing
	ErrNotFound = errors.New("not found")

	// ErrParse is returned when upstream content does not have the expected shape
	ErrParse = errors.New("parse error")
)

// RegionRow is one typed row of the district report table
type RegionRow struct {
	// Name is the region name as printed in the report
	Name string

	// Count is the cumulative case count
	Count int64

	// RawTimestamp is the report date text, parsed later by timeparse
	RawTimestamp string
}

//go:generate mockgen -destination=mocks/mock_sources.go -package=mocks -source=types.go DistrictSource,StatsSource

// DistrictSource provides the current per-region table
type DistrictSource interface {
	// FetchRegionRows resolves the current report and returns its rows in document order
	FetchRegionRows(ctx context.Context) ([]RegionRow, error)
}

// StatsSource provides the national counter block
type StatsSource interface {
	// FetchCounters returns the sanitized counter tokens in page order
	FetchCounters(ctx context.Context) ([]sanitize.Token, error)
}
