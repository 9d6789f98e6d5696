package models

// ProjectionQuery selects the two ratio axes of GET .../global-optimization/projection.
// Missing values fall back to the run's last selection.
type ProjectionQuery struct {
	X *int `form:"x"`
	Y *int `form:"y"`
}

// ApplyRatioRequest represents the body of POST .../machines/:instance_id/apply-ratio
type ApplyRatioRequest struct {
	Ratio     float64 `json:"ratio" binding:"required,gt=0"`
	RatioType string  `json:"ratio_type,omitempty" binding:"omitempty,oneof=nominal manual optimal"` // default: manual
}
