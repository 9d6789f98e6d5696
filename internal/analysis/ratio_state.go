package analysis

import (
	"math"

	"farm-dashboard/internal/model"
)

// RatioTolerance is the absolute distance under which a ratio counts as "at" the optimal ratio.
const RatioTolerance = 0.01

// IconKind is a display tag attached to a machine's current ratio.
type IconKind string

const (
	IconNominal      IconKind = "nominal"
	IconOptimal      IconKind = "optimal"
	IconStaleOptimal IconKind = "stale-optimal"
	IconManual       IconKind = "manual"
)

// Emphasis is the single visual priority of a ratio cell.
// Ordered weakest to strongest: none, muted, info, warning.
type Emphasis string

const (
	EmphasisNone    Emphasis = "none"
	EmphasisMuted   Emphasis = "muted"
	EmphasisInfo    Emphasis = "info"
	EmphasisWarning Emphasis = "warning"
)

// RatioCategory names the rule that decided the emphasis.
type RatioCategory string

const (
	CategoryUnknown      RatioCategory = "unknown"
	CategoryUnmarked     RatioCategory = "unmarked"
	CategoryNominal      RatioCategory = "nominal"
	CategoryOptimal      RatioCategory = "optimal"
	CategoryStaleOptimal RatioCategory = "stale-optimal"
	CategoryManual       RatioCategory = "manual"
)

// RatioClassification is the render-ready verdict for one machine.
// Icons keep the order in which the rules fired.
type RatioClassification struct {
	Category RatioCategory `json:"category"`
	Icons    []IconKind    `json:"icons"`
	Emphasis Emphasis      `json:"emphasis"`
}

// Has reports whether icon is part of the classification.
func (c RatioClassification) Has(icon IconKind) bool {
	for _, i := range c.Icons {
		if i == icon {
			return true
		}
	}
	return false
}

// ClassifyRatioState maps a machine's ratio fields to icons and an emphasis class.
//
// Rules run in a fixed order. Icons accumulate; each rule that sets an emphasis
// overwrites the previous one, so the last rule to fire wins.
func ClassifyRatioState(s model.MachineRatioState) RatioClassification {
	out := RatioClassification{
		Category: CategoryUnknown,
		Icons:    []IconKind{},
		Emphasis: EmphasisNone,
	}
	if s.CurrentRatio == nil {
		return out
	}
	out.Category = CategoryUnmarked
	current := *s.CurrentRatio

	// Exact comparison: only the untouched factory ratio is nominal.
	isNominal := current == model.NominalRatio
	if isNominal {
		out.Icons = append(out.Icons, IconNominal)
		out.Emphasis = EmphasisMuted
		out.Category = CategoryNominal
	}

	if s.OptimalRatio != nil {
		dist := math.Abs(current - *s.OptimalRatio)
		if dist < RatioTolerance {
			out.Icons = append(out.Icons, IconOptimal)
			if !isNominal {
				out.Emphasis = EmphasisInfo
				out.Category = CategoryOptimal
			}
		}
		if s.RatioType == model.RatioTypeOptimal && dist >= RatioTolerance {
			out.Icons = append(out.Icons, IconStaleOptimal)
			out.Emphasis = EmphasisWarning
			out.Category = CategoryStaleOptimal
		}
	}

	if s.RatioType == model.RatioTypeManual && len(out.Icons) == 0 {
		out.Icons = append(out.Icons, IconManual)
		out.Emphasis = EmphasisWarning
		out.Category = CategoryManual
	}

	return out
}
