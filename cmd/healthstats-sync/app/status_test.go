package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	syncapp "github.com/healthstats-bd/healthstats-sync/internal/app"
	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

func TestFormatReport(t *testing.T) {
	t.Parallel()

	synced := time.Date(2020, 6, 30, 4, 0, 0, 0, time.UTC)
	report := &syncapp.StatusReport{
		SyncState: &status.SyncState{LastDistrictSync: &synced},
		Regions: []model.Region{
			{Name: "Dhaka", Count: 12, PreviousCount: 10, LastUpdate: synced},
		},
	}

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		out, err := formatReport(report, "json")
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded))
		assert.Contains(t, decoded, "syncState")
		assert.NotContains(t, decoded, "stats")
	})

	t.Run("yaml is the default", func(t *testing.T) {
		t.Parallel()

		out, err := formatReport(report, "")
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(out, &decoded))
		assert.Contains(t, decoded, "regions")
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		_, err := formatReport(report, "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})
}
