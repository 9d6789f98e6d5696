package analysis

import (
	"sort"

	"farm-dashboard/internal/model"
)

// SweetSpotThreshold is the normalized profit above which a combination is a sweet spot.
// It matches the projector's top color bucket.
const SweetSpotThreshold = 0.8

type RankedCombination struct {
	Rank        int               `json:"rank"`
	Index       int               `json:"index"` // position in the run's original order
	Normalized  float64           `json:"normalized"`
	Combination model.Combination `json:"combination"`
}

// RankSweetSpots returns the sweet-spot combinations sorted by profit descending.
// Ties keep run order. limit <= 0 means no limit.
// A run whose profits are all tied has no sweet spots.
func RankSweetSpots(combinations []model.Combination, stats ProfitStats, limit int) []RankedCombination {
	out := make([]RankedCombination, 0)
	for i, c := range combinations {
		n, ok := stats.Normalize(c.DailyProfit)
		if !ok || n <= SweetSpotThreshold {
			continue
		}
		out = append(out, RankedCombination{Index: i, Normalized: n, Combination: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Combination.DailyProfit > out[j].Combination.DailyProfit
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
