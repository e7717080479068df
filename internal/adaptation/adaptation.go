// Package adaptation turns recent training history and telemetry into adjustments of future workouts.
//
// [Evaluate] proposes adjustments, [Merge] folds them into the current policy and [Apply] computes the effective
// prescription of a single exercise. All three are pure.
package adaptation

import (
	"github.com/myrjola/petracoach/internal/i18n"
)

// Rule identifies the rule that produced a proposal.
type Rule string

const (
	RuleLowConfidence Rule = "low_confidence"
	RuleHighRPE       Rule = "high_rpe"
	RulePain          Rule = "pain"
	RuleOverload      Rule = "progressive_overload"
	RuleRecoverySleep Rule = "recovery_sleep"
)

// Translation keys of the rationales.
const (
	reasonLowConfidence = "adaptation.low_confidence"
	reasonHighRPE       = "adaptation.high_rpe"
	reasonPain          = "adaptation.pain"
	reasonOverload      = "adaptation.overload"
	reasonRecoverySleep = "adaptation.recovery_sleep"
)

// Adjustment is a partial policy. Nil maps and a nil intensity leave the corresponding part untouched.
type Adjustment struct {
	ExerciseReplacements map[string]string  `json:"exerciseReplacements,omitempty"`
	WeightOverrides      map[string]float64 `json:"weightOverrides,omitempty"`
	VolumeMultipliers    map[string]float64 `json:"volumeMultipliers,omitempty"`
	IntensityModifier    *float64           `json:"intensityModifier,omitempty"`
}

// Proposal is an adjustment together with the rationale shown to the user.
type Proposal struct {
	Rule       Rule       `json:"rule"`
	Adjustment Adjustment `json:"adjustment"`
	// ReasonKey is an i18n translation key formatted with ReasonArgs.
	ReasonKey  string `json:"reasonKey"`
	ReasonArgs []any  `json:"reasonArgs,omitempty"`
}

// Reason renders the rationale in lang.
func (p Proposal) Reason(lang i18n.Language) string {
	return i18n.Translate(lang, p.ReasonKey, p.ReasonArgs...)
}
