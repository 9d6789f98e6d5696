package models

import (
	"time"

	"farm-dashboard/internal/analysis"
	"farm-dashboard/internal/model"
	"farm-dashboard/internal/projection"
)

// SitesResponse represents the response of GET /api/v1/sites
type SitesResponse struct {
	Sites []model.Site `json:"sites"`
	Count int          `json:"count"`
}

// MachineRow is one summary row with its ratio classification.
type MachineRow struct {
	model.MachineSummary
	CurrentRatioDisplay string                       `json:"current_ratio_display"` // "%.3f" or "N/A"
	Classification      analysis.RatioClassification `json:"classification"`
}

// SiteSummaryResponse represents a classified site summary
type SiteSummaryResponse struct {
	SiteID   int    `json:"site_id"`
	SiteName string `json:"site_name"`

	ElectricityTier1Rate  float64 `json:"electricity_tier1_rate"`
	ElectricityTier2Rate  float64 `json:"electricity_tier2_rate"`
	ElectricityTier1Limit int     `json:"electricity_tier1_limit"`

	Machines []MachineRow `json:"machines"`

	TotalHashrate float64 `json:"total_hashrate"`
	TotalPower    float64 `json:"total_power"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalCost     float64 `json:"total_cost"`
	TotalProfit   float64 `json:"total_profit"`
}

// OptimizationResponse represents the response from a global optimization run
type OptimizationResponse struct {
	RunID     string    `json:"run_id"`
	SiteID    int       `json:"site_id"`
	SiteName  string    `json:"site_name"`
	CreatedAt time.Time `json:"created_at"`

	CombinationsTested int       `json:"combinations_tested"`
	BestProfit         float64   `json:"best_profit"`
	BestCombination    []float64 `json:"best_combination"`

	TotalHashrate       float64                    `json:"total_hashrate"`
	TotalPower          float64                    `json:"total_power"`
	DailyProfit         *float64                   `json:"daily_profit,omitempty"`
	MachinePerformances []model.MachinePerformance `json:"machine_performances"`

	// Synthetic is set when the farm API sent no all_results and the run holds
	// only the best combination.
	Synthetic  bool                         `json:"synthetic"`
	Stats      analysis.ProfitStats         `json:"stats"`
	SweetSpots []analysis.RankedCombination `json:"sweet_spots"`

	// Projection is omitted for single-machine runs.
	Projection *projection.Projection `json:"projection,omitempty"`

	// Summary is the reloaded site summary; omitted if the reload failed.
	Summary *SiteSummaryResponse `json:"summary,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
