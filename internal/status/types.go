// Package status defines the process-wide sync state record used as the sync guard.
package status

import "time"

// SyncKind identifies one of the independent sync cycles
type SyncKind string

const (
	// SyncKindDistrict is the per-region case count sync
	SyncKindDistrict SyncKind = "district"

	// SyncKindStats is the national aggregate counters sync
	SyncKindStats SyncKind = "stats"
)

// AllKinds lists every sync kind in a stable order
var AllKinds = []SyncKind{SyncKindDistrict, SyncKindStats}

// Valid reports whether k is a known sync kind
func (k SyncKind) Valid() bool {
	return k == SyncKindDistrict || k == SyncKindStats
}

// SyncState is the singleton record of in-flight sync flags and last-success timestamps
type SyncState struct {
	// DistrictSyncing is true while a district sync is running
	DistrictSyncing bool `json:"districtSyncing" yaml:"districtSyncing" bson:"district_syncing"`

	// StatsSyncing is true while a stats sync is running
	StatsSyncing bool `json:"statsSyncing" yaml:"statsSyncing" bson:"stats_syncing"`

	// LastDistrictSync is when a district sync last fetched changed data
	LastDistrictSync *time.Time `json:"lastDistrictSync,omitempty" yaml:"lastDistrictSync,omitempty" bson:"last_district_sync,omitempty"`

	// LastStatsSync is when the stats counters were last written
	LastStatsSync *time.Time `json:"lastStatsSync,omitempty" yaml:"lastStatsSync,omitempty" bson:"last_stats_sync,omitempty"`

	// LastDistrictAttempt is when a district sync last started
	LastDistrictAttempt *time.Time `json:"lastDistrictAttempt,omitempty" yaml:"lastDistrictAttempt,omitempty" bson:"last_district_attempt,omitempty"`

	// LastStatsAttempt is when a stats sync last started
	LastStatsAttempt *time.Time `json:"lastStatsAttempt,omitempty" yaml:"lastStatsAttempt,omitempty" bson:"last_stats_attempt,omitempty"`

	// LastError is the message of the most recent failed cycle, cleared on success
	LastError string `json:"lastError,omitempty" yaml:"lastError,omitempty" bson:"last_error,omitempty"`
}

// IsSyncing returns the guard flag for kind
func (s *SyncState) IsSyncing(kind SyncKind) bool {
	switch kind {
	case SyncKindDistrict:
		return s.DistrictSyncing
	case SyncKindStats:
		return s.StatsSyncing
	default:
		return false
	}
}

// SetSyncing sets the guard flag for kind
func (s *SyncState) SetSyncing(kind SyncKind, syncing bool) {
	switch kind {
	case SyncKindDistrict:
		s.DistrictSyncing = syncing
	case SyncKindStats:
		s.StatsSyncing = syncing
	}
}

// LastAttempt returns the start time of the latest sync of the given kind, or nil
func (s *SyncState) LastAttempt(kind SyncKind) *time.Time {
	switch kind {
	case SyncKindDistrict:
		return s.LastDistrictAttempt
	case SyncKindStats:
		return s.LastStatsAttempt
	default:
		return nil
	}
}

// SetAttempt records the start time of a sync of the given kind
func (s *SyncState) SetAttempt(kind SyncKind, at time.Time) {
	switch kind {
	case SyncKindDistrict:
		s.LastDistrictAttempt = &at
	case SyncKindStats:
		s.LastStatsAttempt = &at
	}
}

// SetLastSync records a successful sync of the given kind
func (s *SyncState) SetLastSync(kind SyncKind, at time.Time) {
	switch kind {
	case SyncKindDistrict:
		s.LastDistrictSync = &at
	case SyncKindStats:
		s.LastStatsSync = &at
	}
}

// Copy returns a deep copy of the state
func (s *SyncState) Copy() *SyncState {
	if s == nil {
		return nil
	}
	c := *s
	c.LastDistrictSync = copyTime(s.LastDistrictSync)
	c.LastStatsSync = copyTime(s.LastStatsSync)
	c.LastDistrictAttempt = copyTime(s.LastDistrictAttempt)
	c.LastStatsAttempt = copyTime(s.LastStatsAttempt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
