package sync

import (
	"fmt"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/sanitize"
	"github.com/healthstats-bd/healthstats-sync/internal/sources"
)

// AggregateStats maps the first eight counter tokens, in page order, onto the
// aggregate fields: positive 24h, positive total, death 24h, death total,
// recovered 24h, recovered total, test 24h, test total. Tokens past the eighth
// are ignored. Nothing is returned unless all eight are numeric.
func AggregateStats(tokens []sanitize.Token) (*model.AggregateStat, error) {
	if len(tokens) < model.StatFieldCount {
		return nil, fmt.Errorf("%w: expected %d counters, got %d", sources.ErrParse, model.StatFieldCount, len(tokens))
	}

	stats := &model.AggregateStat{}
	for i, field := range stats.Fields() {
		token := tokens[i]
		if !token.IsNumber {
			return nil, fmt.Errorf("%w: counter %d is not a number: %q", sources.ErrParse, i, token.Text)
		}
		*field = token.Number
	}
	return stats, nil
}
