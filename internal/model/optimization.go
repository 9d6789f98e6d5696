package model

import (
	"sort"
	"strconv"
)

// Combination is one tested point of the grid search: one ratio per machine, in run order.
type Combination struct {
	Ratios        []float64 `json:"combination"`
	DailyProfit   float64   `json:"daily_profit"`
	TotalHashrate float64   `json:"total_hashrate"`
	TotalPower    float64   `json:"total_power"`
}

// MachinePerformance is one machine's operating point at the best combination.
type MachinePerformance struct {
	Name     string  `json:"name"`
	Ratio    float64 `json:"ratio"`
	Hashrate float64 `json:"hashrate"`
	Power    float64 `json:"power"`
}

// RunResults holds the run-level aggregates at the best combination.
// DailyProfit is optional; older farm API versions omit it.
type RunResults struct {
	TotalHashrate       float64              `json:"total_hashrate"`
	TotalPower          float64              `json:"total_power"`
	DailyProfit         *float64             `json:"daily_profit,omitempty"`
	MachinePerformances []MachinePerformance `json:"machine_performances"`
}

// OptimizationRun matches the JSON shape of POST /sites/{id}/global-optimization.
//
// Example:
//
//	{
//	  "site_name": "North",
//	  "combinations_tested": 121,
//	  "best_profit": 14.52,
//	  "best_combination": {"0": 0.85, "1": 1.0},
//	  "results": {"total_hashrate": 210.4, "total_power": 6120, "machine_performances": [ ... ]},
//	  "all_results": [ {"combination": [0.5, 0.5], "daily_profit": 3.1, ...}, ... ]
//	}
type OptimizationRun struct {
	SiteID             int                `json:"site_id,omitempty"`
	SiteName           string             `json:"site_name"`
	CombinationsTested int                `json:"combinations_tested"`
	BestProfit         float64            `json:"best_profit"`
	BestCombination    map[string]float64 `json:"best_combination"`
	Results            RunResults         `json:"results"`
	AllResults         []Combination      `json:"all_results,omitempty"`
}

// BestRatios returns BestCombination as a slice ordered by machine index.
// Keys that are not integers are ignored.
func (r OptimizationRun) BestRatios() []float64 {
	type entry struct {
		idx   int
		ratio float64
	}
	entries := make([]entry, 0, len(r.BestCombination))
	for k, v := range r.BestCombination {
		idx, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		entries = append(entries, entry{idx: idx, ratio: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].idx < entries[j].idx
	})
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.ratio
	}
	return out
}
