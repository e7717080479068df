package adaptation

import (
	"maps"

	"github.com/myrjola/petracoach/internal/progression"
)

// Merge folds proposals into a copy of current in order. Later proposals overwrite earlier map entries and the
// intensity only ever decreases, so the most conservative proposal wins. current is never modified.
func Merge(current progression.Adaptations, proposals []Proposal) progression.Adaptations {
	merged := current.Clone()
	for _, p := range proposals {
		maps.Copy(merged.ExerciseReplacements, p.Adjustment.ExerciseReplacements)
		maps.Copy(merged.WeightOverrides, p.Adjustment.WeightOverrides)
		maps.Copy(merged.VolumeMultipliers, p.Adjustment.VolumeMultipliers)
		if p.Adjustment.IntensityModifier != nil {
			merged.IntensityModifier = min(merged.IntensityModifier, *p.Adjustment.IntensityModifier)
		}
	}
	return merged
}
