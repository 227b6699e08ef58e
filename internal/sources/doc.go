// Package sources retrieves raw health statistics from the two upstream pages.
//
// The package defines the DistrictSource and StatsSource interfaces which
// abstract the process of fetching and extracting the per-region table and
// the national counter block.
//
// Architecture:
//   - DistrictSource: resolves the current report link and returns RegionRow values
//   - StatsSource: returns the sanitized counter tokens in page order
//   - Fetcher: the HTTP implementation of both, built on httpclient and goquery
//
// Extraction is split from fetching so the table and counter rules can be
// exercised against static documents:
//   - ExtractRegionRows: first table, first two rows skipped, rowspan cells skipped
//   - ToRegionRows: converts sanitized cells to typed (name, count, timestamp) rows
//   - ExtractCounters: sanitized text of every node matched by a CSS selector
//
// Failures are reported with the ErrNotFound and ErrParse sentinels wrapped
// with context, so callers classify them with errors.Is.
package sources
