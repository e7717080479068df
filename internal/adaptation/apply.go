package adaptation

import (
	"math"

	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
)

// Prescription is the effective load of one exercise. Weight is nil for unweighted exercises.
type Prescription struct {
	Weight *float64 `json:"weight,omitempty"`
	Sets   int      `json:"sets"`
}

// Apply computes the effective prescription of exerciseID from its base weight and set count.
//
// A weight override replaces the base weight, even when the base has no weight. The volume multiplier scales the
// sets. The intensity modifier then scales the weight, rounded to 0.5 kg, and the sets, with at least one set left.
// Overrides that already encode a deload are therefore compounded by the intensity modifier.
func Apply(exerciseID string, baseWeight *float64, baseSets int, a progression.Adaptations) Prescription {
	weight := ptr.Clone(baseWeight)
	sets := baseSets

	if override, ok := a.WeightOverrides[exerciseID]; ok {
		weight = &override
	}
	if multiplier, ok := a.VolumeMultipliers[exerciseID]; ok {
		sets = int(math.Round(float64(sets) * multiplier))
	}

	if weight != nil {
		scaled := math.Round(*weight*a.IntensityModifier*2) / 2 //nolint:mnd // nearest 0.5 kg.
		weight = &scaled
	}
	sets = max(1, int(math.Round(float64(sets)*a.IntensityModifier)))

	return Prescription{Weight: weight, Sets: sets}
}
