package model

// RatioType tags where a machine's current ratio came from.
// Values match the farm API's ratio_type field.
type RatioType string

const (
	RatioTypeNominal RatioType = "nominal"
	RatioTypeManual  RatioType = "manual"
	RatioTypeOptimal RatioType = "optimal"
)

// NominalRatio is the unmodified factory operating point.
const NominalRatio = 1.0

// MachineRatioState is one machine's ratio snapshot as of the last summary load.
// A nil CurrentRatio means no ratio was ever applied.
type MachineRatioState struct {
	CurrentRatio *float64
	OptimalRatio *float64
	RatioType    RatioType
}

// Ratio returns a pointer to v, for building states in code.
func Ratio(v float64) *float64 {
	return &v
}
