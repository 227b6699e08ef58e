package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel/trace"

	"github.com/healthstats-bd/healthstats-sync/internal/config"
	"github.com/healthstats-bd/healthstats-sync/internal/httpclient"
	"github.com/healthstats-bd/healthstats-sync/internal/otel"
	"github.com/healthstats-bd/healthstats-sync/internal/sanitize"
)

// Fetcher retrieves both upstream pages over HTTP.
// It implements DistrictSource and StatsSource.
type Fetcher struct {
	client     httpclient.Client
	baseURL    string
	reportText string
	statsURL   string
	selector   string
}

var (
	_ DistrictSource = (*Fetcher)(nil)
	_ StatsSource    = (*Fetcher)(nil)
)

// NewFetcher creates a fetcher for the configured sources
func NewFetcher(client httpclient.Client, cfg *config.SourcesConfig) *Fetcher {
	selector := cfg.Stats.Selector
	if selector == "" {
		selector = config.DefaultStatsSelector
	}

	return &Fetcher{
		client:     client,
		baseURL:    cfg.District.BaseURL,
		reportText: cfg.District.ReportText,
		statsURL:   cfg.Stats.URL,
		selector:   selector,
	}
}

// ResolveReportURL finds the anchor whose text equals the configured report
// marker on the district base page and returns its href resolved against the base URL.
func (f *Fetcher) ResolveReportURL(ctx context.Context) (string, error) {
	body, err := f.client.Get(ctx, f.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: report index %s unavailable: %w", ErrNotFound, f.baseURL, err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return "", err
	}

	href, ok := findAnchorHref(doc, f.reportText)
	if !ok {
		return "", fmt.Errorf("%w: no link with text %q on %s", ErrNotFound, f.reportText, f.baseURL)
	}

	base, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %s: %w", f.baseURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: invalid report link %q: %w", ErrParse, href, err)
	}

	return base.ResolveReference(ref).String(), nil
}

// FetchRegionRows resolves the current report and extracts its region rows
func (f *Fetcher) FetchRegionRows(ctx context.Context) ([]RegionRow, error) {
	reportURL, err := f.ResolveReportURL(ctx)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Resolved district report", "url", reportURL)
	trace.SpanFromContext(ctx).SetAttributes(otel.AttrSourceURL.String(reportURL))

	body, err := f.client.Get(ctx, reportURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch district report %s: %w", reportURL, err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return nil, err
	}

	cells, err := ExtractRegionRows(doc)
	if err != nil {
		return nil, err
	}

	return ToRegionRows(cells)
}

// FetchCounters fetches the stats page and extracts the counter tokens
func (f *Fetcher) FetchCounters(ctx context.Context) ([]sanitize.Token, error) {
	trace.SpanFromContext(ctx).SetAttributes(otel.AttrSourceURL.String(f.statsURL))
	body, err := f.client.Get(ctx, f.statsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats page %s: %w", f.statsURL, err)
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return nil, err
	}

	tokens := ExtractCounters(doc, f.selector)
	slog.DebugContext(ctx, "Extracted stats counters", "count", len(tokens))
	return tokens, nil
}
