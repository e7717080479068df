package adaptation

import (
	"github.com/myrjola/petracoach/internal/program"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
)

const (
	// WindowSize is the number of most recent workouts the rules look at.
	WindowSize = 5
	// MinHistory is the number of completed workouts required before any rule runs.
	MinHistory = 3

	lowConfidenceThreshold = 2.5
	highRPEThreshold       = 4.2
	painSeverityThreshold  = 3
	overloadConfidence     = 4
	overloadRPE            = 3.5
	heavyWeightThreshold   = 40
	heavyIncrement         = 5
	lightIncrement         = 2.5
	sleepHoursThreshold    = 6

	lowConfidenceIntensity = 0.85
	highRPEIntensity       = 0.9
	recoverySleepIntensity = 0.7

	// neutralRating substitutes means over an empty window.
	neutralRating = 3
)

// InjuryProtocols finds the injury protocol of a body part.
type InjuryProtocols interface {
	InjuryProtocolFor(bodyPart string) (program.InjuryProtocol, bool)
}

// Evaluate runs every rule against the recent workouts, most recent last, and returns the proposals of all rules that
// apply in rule order.
//
// Pain replacements only consider replacements made within this evaluation, so current does not influence the
// outcome of any rule today.
func Evaluate(
	recent []progression.CompletedWorkout,
	telemetry progression.Telemetry,
	current progression.Adaptations,
	protocols InjuryProtocols,
) []Proposal {
	var proposals []Proposal

	avgConfidence := meanRating(recent, func(w progression.CompletedWorkout) int { return w.Confidence })
	avgRPE := meanRating(recent, func(w progression.CompletedWorkout) int { return w.RPE })

	if avgConfidence < lowConfidenceThreshold {
		proposals = append(proposals, Proposal{
			Rule:       RuleLowConfidence,
			Adjustment: Adjustment{IntensityModifier: ptr.Ref(lowConfidenceIntensity)},
			ReasonKey:  reasonLowConfidence,
			ReasonArgs: nil,
		})
	}

	if avgRPE > highRPEThreshold {
		proposals = append(proposals, Proposal{
			Rule:       RuleHighRPE,
			Adjustment: Adjustment{IntensityModifier: ptr.Ref(highRPEIntensity)},
			ReasonKey:  reasonHighRPE,
			ReasonArgs: nil,
		})
	}

	painReports := collectPainReports(recent)
	if replacements := painReplacements(painReports, protocols); len(replacements) > 0 {
		proposals = append(proposals, Proposal{
			Rule:       RulePain,
			Adjustment: Adjustment{ExerciseReplacements: replacements},
			ReasonKey:  reasonPain,
			ReasonArgs: []any{len(replacements)},
		})
	}

	if avgConfidence > overloadConfidence && avgRPE < overloadRPE && len(painReports) == 0 && len(recent) > 0 {
		if weights := progressiveOverload(recent[len(recent)-1]); len(weights) > 0 {
			proposals = append(proposals, Proposal{
				Rule:       RuleOverload,
				Adjustment: Adjustment{WeightOverrides: weights},
				ReasonKey:  reasonOverload,
				ReasonArgs: nil,
			})
		}
	}

	if telemetry.AvgSleepHours < sleepHoursThreshold {
		proposals = append(proposals, Proposal{
			Rule:       RuleRecoverySleep,
			Adjustment: Adjustment{IntensityModifier: ptr.Ref(recoverySleepIntensity)},
			ReasonKey:  reasonRecoverySleep,
			ReasonArgs: nil,
		})
	}

	return proposals
}

func meanRating(workouts []progression.CompletedWorkout, rating func(progression.CompletedWorkout) int) float64 {
	if len(workouts) == 0 {
		return neutralRating
	}
	sum := 0
	for _, w := range workouts {
		sum += rating(w)
	}
	return float64(sum) / float64(len(workouts))
}

func collectPainReports(workouts []progression.CompletedWorkout) []progression.PainReport {
	var reports []progression.PainReport
	for _, w := range workouts {
		reports = append(reports, w.PainReports...)
	}
	return reports
}

// painReplacements maps the restricted exercises of every sufficiently painful body part to the first recommended
// exercise of its protocol. The first body part to restrict an exercise wins.
func painReplacements(reports []progression.PainReport, protocols InjuryProtocols) map[string]string {
	if protocols == nil {
		return nil
	}

	// Body parts are grouped verbatim and visited in order of first report.
	var bodyParts []string
	maxSeverity := map[string]int{}
	for _, report := range reports {
		current, seen := maxSeverity[report.BodyPart]
		if !seen {
			bodyParts = append(bodyParts, report.BodyPart)
		}
		maxSeverity[report.BodyPart] = max(current, report.Severity)
	}

	replacements := map[string]string{}
	for _, bodyPart := range bodyParts {
		if maxSeverity[bodyPart] < painSeverityThreshold {
			continue
		}
		protocol, ok := protocols.InjuryProtocolFor(bodyPart)
		if !ok || len(protocol.RecommendedExercises) == 0 {
			continue
		}
		alternative := protocol.RecommendedExercises[0]
		for _, restricted := range protocol.RestrictedExercises {
			if _, exists := replacements[restricted]; !exists {
				replacements[restricted] = alternative
			}
		}
	}
	return replacements
}

// progressiveOverload proposes a heavier absolute weight for every exercise of w that was performed in full with
// weights.
func progressiveOverload(w progression.CompletedWorkout) map[string]float64 {
	weights := map[string]float64{}
	for _, exercise := range w.Exercises {
		if exercise.Skipped {
			continue
		}
		allCompleted := true
		var (
			sum      float64
			weighted int
		)
		for _, set := range exercise.Sets {
			if !set.Completed {
				allCompleted = false
				break
			}
			if set.Weight != nil {
				sum += *set.Weight
				weighted++
			}
		}
		if !allCompleted || weighted == 0 {
			continue
		}

		avg := sum / float64(weighted)
		increment := lightIncrement
		if avg > heavyWeightThreshold {
			increment = heavyIncrement
		}
		weights[exercise.ExerciseID] = avg + increment
	}
	return weights
}
