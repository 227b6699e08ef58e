// Package timeparse parses the report timestamps attached to region rows.
package timeparse

import (
	"log/slog"
	"strings"
	"time"
)

// DefaultUTCOffset is the offset of the report's local time from UTC
const DefaultUTCOffset = 6 * time.Hour

// Parser parses day-month-year dates separated by '.' or '/'.
// Unparseable input never fails: the parser logs a warning and returns the current time.
type Parser struct {
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Parser
type Option func(*Parser)

// WithUTCOffset sets the zone the report dates are expressed in
func WithUTCOffset(offset time.Duration) Option {
	return func(p *Parser) {
		p.location = time.FixedZone("report", int(offset.Seconds()))
	}
}

// WithLogger sets the sink for parse warnings
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the source of the fallback time
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Parser. Dates default to UTC+6.
func New(opts ...Option) *Parser {
	p := &Parser{
		location: time.FixedZone("report", int(DefaultUTCOffset.Seconds())),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns the instant described by raw, trying the two-digit year form
// ("30.06.20") and then the four-digit year form ("30.06.2020").
// On failure it logs a warning and returns the current UTC time.
func (p *Parser) Parse(raw string) time.Time {
	if t, ok := p.TryParse(raw); ok {
		return t
	}

	p.logger.Warn("No parsing format found for report timestamp, using current time", "value", raw)
	return p.now().UTC()
}

// TryParse is Parse without the fallback
func (p *Parser) TryParse(raw string) (time.Time, bool) {
	sep := "/"
	if strings.Contains(raw, ".") {
		sep = "."
	}

	value := strings.TrimSpace(raw)
	for _, layout := range layouts(sep) {
		if t, err := time.ParseInLocation(layout, value, p.location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// layouts accept both padded and unpadded day and month
func layouts(sep string) []string {
	return []string{
		"2" + sep + "1" + sep + "06",
		"2" + sep + "1" + sep + "2006",
	}
}
