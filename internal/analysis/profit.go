package analysis

import (
	"math"
	"sort"

	"farm-dashboard/internal/model"
)

// ProfitStats summarizes the daily profit distribution of one optimization run.
// The projector normalizes against Min/Max; the percentiles are reported alongside the run.
type ProfitStats struct {
	Count int `json:"count"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`
}

func ComputeProfitStats(combinations []model.Combination) ProfitStats {
	s := ProfitStats{}
	if len(combinations) == 0 {
		return s
	}
	s.Count = len(combinations)

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(combinations))
	for _, c := range combinations {
		v := c.DailyProfit
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	s.Min = minv
	s.Max = maxv
	s.Mean = sum / float64(len(vals))
	s.P05 = percentileSorted(vals, 0.05)
	s.P95 = percentileSorted(vals, 0.95)
	s.SpreadP95P05 = s.P95 - s.P05
	return s
}

// Range is Max-Min.
func (s ProfitStats) Range() float64 {
	return s.Max - s.Min
}

// Normalize maps profit onto [0,1] against the run's own min/max.
// It reports false when the range has collapsed (all profits tied, or no data);
// callers must not color or rank on the returned value in that case.
func (s ProfitStats) Normalize(profit float64) (float64, bool) {
	r := s.Range()
	if s.Count == 0 || r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	n := (profit - s.Min) / r
	if math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
