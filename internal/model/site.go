package model

// Site is one entry of the farm API's site list.
type Site struct {
	ID                    int     `json:"id"`
	Name                  string  `json:"name"`
	Location              string  `json:"location,omitempty"`
	ElectricityTier1Rate  float64 `json:"electricity_tier1_rate,omitempty"`
	ElectricityTier2Rate  float64 `json:"electricity_tier2_rate,omitempty"`
	ElectricityTier1Limit int     `json:"electricity_tier1_limit,omitempty"`
}

// MachineSummary is one machine row of GET /sites/{id}/summary.
// The display fields are passed through untouched; only the ratio fields feed classification.
type MachineSummary struct {
	InstanceID    int    `json:"instance_id"`
	TemplateID    int    `json:"template_id"`
	Name          string `json:"name"`
	TemplateModel string `json:"template_model,omitempty"`

	Hashrate            float64 `json:"hashrate"` // TH/s
	Power               float64 `json:"power"`    // W
	DailyRevenue        float64 `json:"daily_revenue"`
	DailyCost           float64 `json:"daily_cost"`
	DailyProfit         float64 `json:"daily_profit"`
	EfficiencyTHPerWatt float64 `json:"efficiency_th_per_watt"`

	CurrentRatio *float64  `json:"current_ratio"`
	OptimalRatio *float64  `json:"optimal_ratio"`
	RatioType    RatioType `json:"ratio_type"`
}

// RatioState extracts the classification input from a summary row.
func (m MachineSummary) RatioState() MachineRatioState {
	return MachineRatioState{
		CurrentRatio: m.CurrentRatio,
		OptimalRatio: m.OptimalRatio,
		RatioType:    m.RatioType,
	}
}

// SiteSummary matches the JSON shape of GET /sites/{id}/summary.
type SiteSummary struct {
	SiteName string `json:"site_name"`

	ElectricityTier1Rate  float64 `json:"electricity_tier1_rate"`
	ElectricityTier2Rate  float64 `json:"electricity_tier2_rate"`
	ElectricityTier1Limit int     `json:"electricity_tier1_limit"`

	Machines []MachineSummary `json:"machines"`

	TotalHashrate float64 `json:"total_hashrate"`
	TotalPower    float64 `json:"total_power"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalCost     float64 `json:"total_cost"`
	TotalProfit   float64 `json:"total_profit"`
}

// AvailableRatios is the farm API's answer to "which ratios can this machine run at".
type AvailableRatios struct {
	CurrentRatio     float64   `json:"current_ratio"`
	CurrentRatioType RatioType `json:"current_ratio_type"`
	OptimalRatio     *float64  `json:"optimal_ratio,omitempty"`
	Ratios           []float64 `json:"available_ratios"`
}

// ApplyRatioRequest is the body of POST /sites/{id}/machines/{iid}/apply-ratio.
type ApplyRatioRequest struct {
	Ratio     float64   `json:"ratio"`
	RatioType RatioType `json:"ratio_type"`
}
