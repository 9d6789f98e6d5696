package data

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-dashboard/internal/model"
)

func TestRunJSONRoundTrip(t *testing.T) {
	profit := 4.2
	run := &model.OptimizationRun{
		SiteID:             2,
		SiteName:           "West",
		CombinationsTested: 1,
		BestProfit:         4.2,
		BestCombination:    map[string]float64{"0": 0.9},
		Results: model.RunResults{
			TotalHashrate:       95,
			TotalPower:          3100,
			DailyProfit:         &profit,
			MachinePerformances: []model.MachinePerformance{{Name: "A", Ratio: 0.9, Hashrate: 95, Power: 3100}},
		},
		AllResults: []model.Combination{{Ratios: []float64{0.9}, DailyProfit: 4.2, TotalHashrate: 95, TotalPower: 3100}},
	}

	path := filepath.Join(t.TempDir(), "runs", "west.json")
	require.NoError(t, SaveRunJSON(run, path))

	loaded, err := LoadRunJSON(path)
	require.NoError(t, err)
	assert.Equal(t, run, loaded)
}

func TestLoadSiteSummaryJSON_Missing(t *testing.T) {
	_, err := LoadSiteSummaryJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
