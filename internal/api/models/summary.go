package models

import (
	"fmt"

	"farm-dashboard/internal/analysis"
	"farm-dashboard/internal/model"
)

// FormatRatio renders a current ratio for the summary table.
func FormatRatio(r *float64) string {
	if r == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", *r)
}

// NewSiteSummaryResponse classifies every machine of summary.
func NewSiteSummaryResponse(siteID int, summary *model.SiteSummary) SiteSummaryResponse {
	resp := SiteSummaryResponse{
		SiteID:                siteID,
		SiteName:              summary.SiteName,
		ElectricityTier1Rate:  summary.ElectricityTier1Rate,
		ElectricityTier2Rate:  summary.ElectricityTier2Rate,
		ElectricityTier1Limit: summary.ElectricityTier1Limit,
		Machines:              make([]MachineRow, len(summary.Machines)),
		TotalHashrate:         summary.TotalHashrate,
		TotalPower:            summary.TotalPower,
		TotalRevenue:          summary.TotalRevenue,
		TotalCost:             summary.TotalCost,
		TotalProfit:           summary.TotalProfit,
	}
	for i, m := range summary.Machines {
		resp.Machines[i] = MachineRow{
			MachineSummary:      m,
			CurrentRatioDisplay: FormatRatio(m.CurrentRatio),
			Classification:      analysis.ClassifyRatioState(m.RatioState()),
		}
	}
	return resp
}
