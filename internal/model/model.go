// Package model contains the records persisted by the sync engine.
package model

import "time"

// Region is the per-area case count entry with one step of change history.
type Region struct {
	// Name is the unique key of the region
	Name string `json:"name" yaml:"name" bson:"name"`

	// Count is the most recently reported case count
	Count int64 `json:"count" yaml:"count" bson:"count"`

	// PreviousCount is the count as of the last time history was allowed to shift.
	// It stays frozen while a changed count is still recent and collapses to Count
	// once the count has been stable for longer than the freeze window.
	PreviousCount int64 `json:"previousCount" yaml:"previousCount" bson:"previous_count"`

	// LastUpdate is the report timestamp attached to the region by the source
	LastUpdate time.Time `json:"lastUpdate" yaml:"lastUpdate" bson:"last_update"`
}

// HasRecentChange reports whether the region still shows a change since the previous count.
func (r *Region) HasRecentChange() bool {
	return r.Count != r.PreviousCount
}

// AggregateStat holds the national rolling counters. Exactly one instance exists.
type AggregateStat struct {
	Positive24     int64 `json:"positive24" yaml:"positive24" bson:"positive_24"`
	PositiveTotal  int64 `json:"positiveTotal" yaml:"positiveTotal" bson:"positive_total"`
	Death24        int64 `json:"death24" yaml:"death24" bson:"death_24"`
	DeathTotal     int64 `json:"deathTotal" yaml:"deathTotal" bson:"death_total"`
	Recovered24    int64 `json:"recovered24" yaml:"recovered24" bson:"recovered_24"`
	RecoveredTotal int64 `json:"recoveredTotal" yaml:"recoveredTotal" bson:"recovered_total"`
	Test24         int64 `json:"test24" yaml:"test24" bson:"test_24"`
	TestTotal      int64 `json:"testTotal" yaml:"testTotal" bson:"test_total"`

	// UpdatedAt is when the counters were last overwritten, zero if never
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty" bson:"updated_at"`
}

// StatFieldCount is the number of positional counters scraped for an AggregateStat.
const StatFieldCount = 8

// Fields returns pointers to the counters in scrape order.
func (s *AggregateStat) Fields() [StatFieldCount]*int64 {
	return [StatFieldCount]*int64{
		&s.Positive24, &s.PositiveTotal,
		&s.Death24, &s.DeathTotal,
		&s.Recovered24, &s.RecoveredTotal,
		&s.Test24, &s.TestTotal,
	}
}
