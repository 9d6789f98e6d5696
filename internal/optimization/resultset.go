package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/errors"

	"farm-dashboard/internal/model"
)

var (
	// ErrEmptyRun is returned when a run has neither all_results nor machine performances.
	ErrEmptyRun = errors.New("optimization run has no results and no machine performances")
	// ErrRaggedCombinations is returned when combinations disagree on the number of ratios.
	ErrRaggedCombinations = errors.New("combinations have inconsistent ratio counts")
)

// ResultSet is the in-memory view of one optimization run: every tested combination
// plus the declared best. It is immutable once built; a new run replaces it wholesale.
type ResultSet struct {
	run          model.OptimizationRun
	combinations []model.Combination
	synthetic    bool
	tolerance    float64
}

type Option func(*ResultSet)

// WithOptimalTolerance switches best-row matching from exact float equality to
// |profit - best_profit| < eps. eps <= 0 keeps exact matching.
func WithOptimalTolerance(eps float64) Option {
	return func(rs *ResultSet) {
		if eps > 0 {
			rs.tolerance = eps
		}
	}
}

// NewResultSet validates run and builds its result set.
//
// When all_results is missing or empty, a single combination is synthesized from the
// machine performances at the best point so there is always something to render.
func NewResultSet(run model.OptimizationRun, opts ...Option) (*ResultSet, error) {
	rs := &ResultSet{run: run}
	for _, opt := range opts {
		opt(rs)
	}

	if len(run.AllResults) == 0 {
		c, err := fallbackCombination(run)
		if err != nil {
			return nil, err
		}
		rs.combinations = []model.Combination{c}
		rs.synthetic = true
		return rs, nil
	}

	dims := len(run.AllResults[0].Ratios)
	combos := make([]model.Combination, len(run.AllResults))
	for i, c := range run.AllResults {
		if len(c.Ratios) != dims {
			return nil, errors.Wrapf(ErrRaggedCombinations,
				"combination %d has %d ratios, expected %d", i, len(c.Ratios), dims)
		}
		combos[i] = copyCombination(c)
	}
	rs.combinations = combos
	return rs, nil
}

func fallbackCombination(run model.OptimizationRun) (model.Combination, error) {
	perfs := run.Results.MachinePerformances
	if len(perfs) == 0 {
		return model.Combination{}, ErrEmptyRun
	}
	ratios := make([]float64, len(perfs))
	for i, p := range perfs {
		ratios[i] = p.Ratio
	}
	profit := run.BestProfit
	if run.Results.DailyProfit != nil {
		profit = *run.Results.DailyProfit
	}
	return model.Combination{
		Ratios:        ratios,
		DailyProfit:   profit,
		TotalHashrate: run.Results.TotalHashrate,
		TotalPower:    run.Results.TotalPower,
	}, nil
}

func copyCombination(c model.Combination) model.Combination {
	out := c
	out.Ratios = append([]float64(nil), c.Ratios...)
	return out
}

// Run returns the run the set was built from.
func (rs *ResultSet) Run() model.OptimizationRun {
	return rs.run
}

func (rs *ResultSet) SiteName() string {
	return rs.run.SiteName
}

func (rs *ResultSet) BestProfit() float64 {
	return rs.run.BestProfit
}

// Synthetic reports whether the combinations were built from machine performances
// because the run carried no all_results.
func (rs *ResultSet) Synthetic() bool {
	return rs.synthetic
}

// Len is the number of combinations held.
func (rs *ResultSet) Len() int {
	return len(rs.combinations)
}

// CombinationsTested is what the farm API reported, falling back to Len.
func (rs *ResultSet) CombinationsTested() int {
	if rs.run.CombinationsTested > 0 {
		return rs.run.CombinationsTested
	}
	return rs.Len()
}

// Combinations returns the combinations in the run's original order.
// The returned slice is a copy.
func (rs *ResultSet) Combinations() []model.Combination {
	out := make([]model.Combination, len(rs.combinations))
	for i, c := range rs.combinations {
		out[i] = copyCombination(c)
	}
	return out
}

// At returns the i-th combination in original order.
func (rs *ResultSet) At(i int) model.Combination {
	return copyCombination(rs.combinations[i])
}

// DimensionCount is the number of machines per combination.
func (rs *ResultSet) DimensionCount() int {
	if len(rs.combinations) == 0 {
		return 0
	}
	return len(rs.combinations[0].Ratios)
}

// MachineNames returns one display name per dimension, in run order.
func (rs *ResultSet) MachineNames() []string {
	names := make([]string, rs.DimensionCount())
	for i := range names {
		names[i] = rs.MachineName(i)
	}
	return names
}

// MachineName is the performance name for dimension i, or "Machine <i+1>" when the
// run does not name it.
func (rs *ResultSet) MachineName(i int) string {
	perfs := rs.run.Results.MachinePerformances
	if i >= 0 && i < len(perfs) && perfs[i].Name != "" {
		return perfs[i].Name
	}
	return fmt.Sprintf("Machine %d", i+1)
}

// IsBest reports whether profit matches the run's best profit under the set's matching rule.
// The default is exact float equality against the server-reported value: a client/server
// rounding difference means no row is tagged.
func (rs *ResultSet) IsBest(profit float64) bool {
	if rs.tolerance > 0 {
		return math.Abs(profit-rs.run.BestProfit) < rs.tolerance
	}
	return profit == rs.run.BestProfit
}

// BestRow returns the first combination, in original order, whose profit matches best_profit.
// The index is its position in original order.
func (rs *ResultSet) BestRow() (model.Combination, int, bool) {
	for i, c := range rs.combinations {
		if rs.IsBest(c.DailyProfit) {
			return copyCombination(c), i, true
		}
	}
	return model.Combination{}, -1, false
}

// SortedByProfitDescending returns a new slice ordered by daily profit, highest first.
// Equal profits keep their original relative order.
func (rs *ResultSet) SortedByProfitDescending() []model.Combination {
	out := rs.Combinations()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DailyProfit > out[j].DailyProfit
	})
	return out
}
