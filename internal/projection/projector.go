package projection

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"farm-dashboard/internal/analysis"
	"farm-dashboard/internal/model"
	"farm-dashboard/internal/optimization"
)

// highlightTolerance is how close a point's profit must be to best_profit to be the
// highlighted optimal point.
const highlightTolerance = 0.01

// Axis describes one ratio axis of the scatter.
type Axis struct {
	Index int     `json:"index"`
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Projection is a render-ready 3-axis scatter of one run: two machine ratios and profit.
// All per-point slices share the run's original combination order.
type Projection struct {
	Axes       AxisSelection `json:"axes"`
	Selectable bool          `json:"selectable"` // more than two machines: the UI shows axis selectors
	Machines   []string      `json:"machines"`

	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Z        []float64 `json:"z"`
	Buckets  []Bucket  `json:"buckets"`
	Colors   []string  `json:"colors"`
	Tooltips []string  `json:"tooltips"`

	XAxis  Axis       `json:"x_axis"`
	YAxis  Axis       `json:"y_axis"`
	ZRange [2]float64 `json:"z_range"`

	// OptimalIndex is the first point within highlightTolerance of best_profit, -1 if none.
	OptimalIndex int   `json:"optimal_index"`
	SweetSpots   []int `json:"sweet_spots"`

	Title string `json:"title"`
}

// Len is the number of points.
func (p *Projection) Len() int {
	return len(p.Z)
}

// Project selects two ratio dimensions of rs and builds the scatter.
// sel is passed through ResolveAxes first, so a colliding Y is advanced, not rejected.
func Project(rs *optimization.ResultSet, sel AxisSelection) (*Projection, error) {
	dims := rs.DimensionCount()
	axes, err := ResolveAxes(sel, dims)
	if err != nil {
		return nil, err
	}

	combos := rs.Combinations()
	stats := analysis.ComputeProfitStats(combos)
	n := len(combos)

	p := &Projection{
		Axes:         axes,
		Selectable:   dims > 2,
		Machines:     rs.MachineNames(),
		X:            make([]float64, n),
		Y:            make([]float64, n),
		Z:            make([]float64, n),
		Buckets:      make([]Bucket, n),
		Colors:       make([]string, n),
		Tooltips:     make([]string, n),
		OptimalIndex: -1,
		SweetSpots:   []int{},
		Title:        fmt.Sprintf("Sweet Spots - Best Profit: $%.2f/day", rs.BestProfit()),
	}

	xLabel := rs.MachineName(axes.X)
	yLabel := rs.MachineName(axes.Y)

	for i, c := range combos {
		x := c.Ratios[axes.X]
		y := c.Ratios[axes.Y]
		p.X[i] = x
		p.Y[i] = y
		p.Z[i] = c.DailyProfit

		b := BucketNeutral
		if norm, ok := stats.Normalize(c.DailyProfit); ok {
			b = BucketFor(norm)
		}
		p.Buckets[i] = b
		p.Colors[i] = b.Color()
		if b == BucketHigh {
			p.SweetSpots = append(p.SweetSpots, i)
		}

		p.Tooltips[i] = tooltip(xLabel, yLabel, x, y, c)

		if p.OptimalIndex < 0 && math.Abs(c.DailyProfit-rs.BestProfit()) < highlightTolerance {
			p.OptimalIndex = i
		}
	}

	p.XAxis = Axis{Index: axes.X, Label: "Ratio " + xLabel}
	p.XAxis.Min, p.XAxis.Max = bounds(p.X)
	p.YAxis = Axis{Index: axes.Y, Label: "Ratio " + yLabel}
	p.YAxis.Min, p.YAxis.Max = bounds(p.Y)
	p.ZRange = padded(stats.Min, stats.Max)

	return p, nil
}

func tooltip(xLabel, yLabel string, x, y float64, c model.Combination) string {
	lines := []string{
		fmt.Sprintf("Ratio %s: %s", xLabel, strconv.FormatFloat(x, 'f', -1, 64)),
		fmt.Sprintf("Ratio %s: %s", yLabel, strconv.FormatFloat(y, 'f', -1, 64)),
		fmt.Sprintf("Profit: $%.2f/day", c.DailyProfit),
		fmt.Sprintf("Hashrate: %.2f TH/s", c.TotalHashrate),
		fmt.Sprintf("Power: %.0fW", math.Round(c.TotalPower)),
	}
	return strings.Join(lines, "<br>")
}

func bounds(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// padded widens [lo, hi] by 10% of each bound's magnitude so extreme points are not
// drawn on the box edge.
func padded(lo, hi float64) [2]float64 {
	lo -= 0.1 * math.Abs(lo)
	hi += 0.1 * math.Abs(hi)
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return [2]float64{lo, hi}
}
