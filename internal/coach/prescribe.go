package coach

import (
	"math"

	"github.com/myrjola/petracoach/internal/adaptation"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/program"
	"github.com/myrjola/petracoach/internal/progression"
)

// deloadThreshold is the intensity below which a plan is presented as a deload.
const deloadThreshold = 0.95

// PlannedExercise is an exercise of today's plan with adaptations applied.
type PlannedExercise struct {
	ExerciseID string `json:"exerciseId"`
	// ReplacedExerciseID is the exercise the program prescribes when ExerciseID is a substitute.
	ReplacedExerciseID string   `json:"replacedExerciseId,omitempty"`
	Name               string   `json:"name"`
	ReplacedName       string   `json:"replacedName,omitempty"`
	FormCues           []string `json:"formCues"`
	Sets               int      `json:"sets"`
	Reps               string   `json:"reps"`
	RestSeconds        int      `json:"restSeconds"`
	// BaseWeight is the average weight logged the last time the exercise was performed.
	BaseWeight *float64 `json:"baseWeight,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
}

type PlannedBlock struct {
	Exercises []PlannedExercise `json:"exercises"`
	Notes     string            `json:"notes,omitempty"`
}

// DayPlan is what the user is asked to do on the current day.
type DayPlan struct {
	PhaseID         string                      `json:"phaseId"`
	PhaseName       string                      `json:"phaseName"`
	Day             int                         `json:"day"`
	TotalDays       int                         `json:"totalDays"`
	Week            int                         `json:"week"`
	Weekday         int                         `json:"weekday"`
	RestDay         bool                        `json:"restDay"`
	WorkoutID       string                      `json:"workoutId,omitempty"`
	WorkoutName     string                      `json:"workoutName,omitempty"`
	WorkoutType     program.WorkoutType         `json:"workoutType,omitempty"`
	DurationMinutes int                         `json:"durationMinutes,omitempty"`
	Warmup          string                      `json:"warmup,omitempty"`
	Cooldown        string                      `json:"cooldown,omitempty"`
	Blocks          []PlannedBlock              `json:"blocks"`
	Nutrition       program.NutritionGuidelines `json:"nutrition"`
	// Deloaded is set when the intensity modifier is below 0.95.
	Deloaded bool `json:"deloaded"`
	// IntensityReductionPercent is how much the intensity modifier lowers the load, 0 to 100.
	IntensityReductionPercent int `json:"intensityReductionPercent"`
	ActiveReplacements        int `json:"activeReplacements"`
}

// Prescribe renders the plan of the session's current day in lang.
//
// Exercises that don't resolve are left out. A day without a resolvable workout is a rest day.
func Prescribe(content Content, s Session, lang i18n.Language) (DayPlan, error) {
	p := s.Progression
	phase, err := content.ResolvePhase(p.PackID, p.CurrentPhaseID)
	if err != nil {
		return DayPlan{}, errors.Wrap(err, "prescribe")
	}

	a := p.Adaptations
	plan := DayPlan{
		PhaseID:                   phase.ID,
		PhaseName:                 phase.Name.Get(lang),
		Day:                       p.CurrentDay,
		TotalDays:                 phase.TotalDays(),
		Week:                      program.Week(p.CurrentDay),
		Weekday:                   program.Weekday(p.CurrentDay),
		RestDay:                   true,
		Blocks:                    []PlannedBlock{},
		Nutrition:                 phase.NutritionGuidelines,
		Deloaded:                  a.IntensityModifier < deloadThreshold,
		IntensityReductionPercent: int(math.Round((1 - a.IntensityModifier) * 100)), //nolint:mnd // percent.
		ActiveReplacements:        len(a.ExerciseReplacements),
	}

	ref, ok := phase.ScheduledWorkout(p.CurrentDay)
	if !ok {
		return plan, nil
	}
	workout, err := content.ResolveWorkout(ref.ID)
	if err != nil {
		return plan, nil //nolint:nilerr // an unresolvable workout degrades to a rest day.
	}

	plan.RestDay = false
	plan.WorkoutID = workout.ID
	plan.WorkoutName = workout.Name.Get(lang)
	if plan.WorkoutName == "" {
		plan.WorkoutName = i18n.Translate(lang, "coach.workout_default_name")
	}
	plan.WorkoutType = workout.Type
	plan.DurationMinutes = workout.DurationMinutes
	plan.Warmup = workout.Warmup
	plan.Cooldown = workout.Cooldown

	for _, block := range workout.ExerciseBlocks {
		planned := PlannedBlock{Exercises: []PlannedExercise{}, Notes: block.Notes.Get(lang)}
		for _, prescribedID := range block.Exercises {
			exercise, ok := plannedExercise(content, p, prescribedID, block, lang)
			if ok {
				planned.Exercises = append(planned.Exercises, exercise)
			}
		}
		plan.Blocks = append(plan.Blocks, planned)
	}
	return plan, nil
}

func plannedExercise(
	content Content,
	p progression.Progression,
	prescribedID string,
	block program.ExerciseBlock,
	lang i18n.Language,
) (PlannedExercise, bool) {
	exerciseID := prescribedID
	replacedID := ""
	replacedName := ""
	if substitute, ok := p.Adaptations.ExerciseReplacements[prescribedID]; ok {
		exerciseID = substitute
		replacedID = prescribedID
		if original, err := content.ResolveExercise(prescribedID); err == nil {
			replacedName = original.Name.Get(lang)
		}
	}

	exercise, err := content.ResolveExercise(exerciseID)
	if err != nil {
		return PlannedExercise{}, false
	}

	baseWeight := lastAverageWeight(p.CompletedWorkouts, exerciseID)
	prescription := adaptation.Apply(exerciseID, baseWeight, block.Sets, p.Adaptations)
	return PlannedExercise{
		ExerciseID:         exerciseID,
		ReplacedExerciseID: replacedID,
		Name:               exercise.Name.Get(lang),
		ReplacedName:       replacedName,
		FormCues:           exercise.FormCues.Get(lang),
		Sets:               prescription.Sets,
		Reps:               string(block.Reps),
		RestSeconds:        block.RestSeconds,
		BaseWeight:         baseWeight,
		Weight:             prescription.Weight,
	}, true
}

// lastAverageWeight averages the logged weights of exerciseID in the most recent workout that has any.
func lastAverageWeight(history []progression.CompletedWorkout, exerciseID string) *float64 {
	for i := len(history) - 1; i >= 0; i-- {
		var (
			sum   float64
			count int
		)
		for _, e := range history[i].Exercises {
			if e.ExerciseID != exerciseID || e.Skipped {
				continue
			}
			for _, set := range e.Sets {
				if set.Weight != nil {
					sum += *set.Weight
					count++
				}
			}
		}
		if count > 0 {
			avg := sum / float64(count)
			return &avg
		}
	}
	return nil
}
