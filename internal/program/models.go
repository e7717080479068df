// Package program models the read-only content of a training program pack and resolves it by id.
package program

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/i18n"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a referenced phase, workout, exercise or file is not part of the pack.
var ErrNotFound = errors.NewSentinel("not found")

// Goal is the overall aim of a program.
type Goal string

const (
	GoalFatLoss       Goal = "fat_loss"
	GoalMuscleGain    Goal = "muscle_gain"
	GoalStrength      Goal = "strength"
	GoalEndurance     Goal = "endurance"
	GoalGeneralHealth Goal = "general_health"
)

// WorkoutType classifies a workout or a schedule slot.
type WorkoutType string

const (
	WorkoutTypeStrength       WorkoutType = "strength"
	WorkoutTypeCardio         WorkoutType = "cardio"
	WorkoutTypeMobility       WorkoutType = "mobility"
	WorkoutTypeRest           WorkoutType = "rest"
	WorkoutTypeActiveRecovery WorkoutType = "active_recovery"
)

// Manifest is the root document of a program pack.
type Manifest struct {
	Version   int              `json:"version"   yaml:"version"`
	Languages []i18n.Language  `json:"languages" yaml:"languages"`
	Levels    []int            `json:"levels"    yaml:"levels"`
	Program   Program          `json:"program"   yaml:"program"`
	Exercises []Exercise       `json:"exercises" yaml:"exercises"`
	Meals     []Meal           `json:"meals"     yaml:"meals"`
	Injuries  []InjuryProtocol `json:"injuries"  yaml:"injuries"`
}

// Program is an ordered list of phases.
type Program struct {
	ID          string    `json:"id"          yaml:"id"`
	Title       i18n.Text `json:"title"       yaml:"title"`
	Description i18n.Text `json:"description" yaml:"description"`
	Goal        Goal      `json:"goal"        yaml:"goal"`
	Phases      []Phase   `json:"phases"      yaml:"phases"`
}

// Phase is a multi-week block of the program with its own schedule and nutrition targets.
type Phase struct {
	ID                  string              `json:"id"                  yaml:"id"`
	Name                i18n.Text           `json:"name"                yaml:"name"`
	Order               int                 `json:"order"               yaml:"order"`
	DurationWeeks       int                 `json:"durationWeeks"       yaml:"durationWeeks"`
	Description         i18n.Text           `json:"description"         yaml:"description"`
	WorkoutSchedule     WorkoutSchedule     `json:"workoutSchedule"     yaml:"workoutSchedule"`
	NutritionGuidelines NutritionGuidelines `json:"nutritionGuidelines" yaml:"nutritionGuidelines"`
	// RecoveryProtocol is the path of a markdown file in the pack.
	RecoveryProtocol string `json:"recoveryProtocol,omitempty" yaml:"recoveryProtocol"`
}

// WorkoutSchedule lists the workouts of a week. Entry order matters, see [ScheduledWorkout].
type WorkoutSchedule struct {
	DaysPerWeek int                `json:"daysPerWeek" yaml:"daysPerWeek"`
	Workouts    []WorkoutReference `json:"workouts"    yaml:"workouts"`
}

// WorkoutReference points to a workout, optionally pinned to a weekday.
type WorkoutReference struct {
	ID string `json:"id" yaml:"id"`
	// DayOfWeek is 1 for Monday through 7 for Sunday. Nil means flexible, matching every day.
	DayOfWeek *int        `json:"dayOfWeek,omitempty" yaml:"dayOfWeek"`
	Type      WorkoutType `json:"type"                yaml:"type"`
}

// NutritionGuidelines are the daily targets of a phase.
type NutritionGuidelines struct {
	CaloriesTarget int      `json:"caloriesTarget"    yaml:"caloriesTarget"`
	ProteinGrams   int      `json:"proteinGrams"      yaml:"proteinGrams"`
	CarbsGrams     int      `json:"carbsGrams"        yaml:"carbsGrams"`
	FatGrams       int      `json:"fatGrams"          yaml:"fatGrams"`
	MealsPerDay    int      `json:"mealsPerDay"       yaml:"mealsPerDay"`
	MealIDs        []string `json:"mealIds,omitempty" yaml:"mealIds"`
}

// Workout is a single training session definition.
type Workout struct {
	ID              string          `json:"id"              yaml:"id"`
	Name            i18n.Text       `json:"name"            yaml:"name"`
	Type            WorkoutType     `json:"type"            yaml:"type"`
	DurationMinutes int             `json:"durationMinutes" yaml:"durationMinutes"`
	ExerciseBlocks  []ExerciseBlock `json:"exerciseBlocks"  yaml:"exerciseBlocks"`
	// Warmup and Cooldown are paths of markdown files in the pack.
	Warmup   string `json:"warmup,omitempty"   yaml:"warmup"`
	Cooldown string `json:"cooldown,omitempty" yaml:"cooldown"`
}

// ExerciseBlock is a group of exercises performed for a prescribed set and rep scheme.
type ExerciseBlock struct {
	Exercises   []string  `json:"exercises"       yaml:"exercises"`
	Sets        int       `json:"sets"            yaml:"sets"`
	Reps        Reps      `json:"reps"            yaml:"reps"`
	RestSeconds int       `json:"restSeconds"     yaml:"restSeconds"`
	Notes       i18n.Text `json:"notes,omitempty" yaml:"notes"`
}

// Reps is a rep target. Packs write it either as a number (12) or as text ("8-12", "AMRAP").
type Reps string

// UnmarshalJSON accepts both JSON numbers and strings.
func (r *Reps) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Reps(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("reps must be a number or a string: %w", err)
	}
	*r = Reps(s)
	return nil
}

// UnmarshalYAML accepts scalar numbers and strings.
func (r *Reps) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("reps must be a scalar, line %d", value.Line)
	}
	*r = Reps(value.Value)
	return nil
}

// Number returns the rep target as a number when it is numeric.
func (r Reps) Number() (int, bool) {
	n, err := strconv.Atoi(string(r))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Exercise carries the localized metadata of a single movement.
type Exercise struct {
	ID           string        `json:"id"           yaml:"id"`
	Name         i18n.Text     `json:"name"         yaml:"name"`
	Description  i18n.Text     `json:"description"  yaml:"description"`
	Equipment    []string      `json:"equipment"    yaml:"equipment"`
	MuscleGroups []string      `json:"muscleGroups" yaml:"muscleGroups"`
	Difficulty   int           `json:"difficulty"   yaml:"difficulty"`
	FormCues     i18n.TextList `json:"formCues"     yaml:"formCues"`
	VideoURL     string        `json:"videoUrl,omitempty" yaml:"videoUrl"`
	// Alternatives are exercise ids that can replace this one.
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives"`
	// ContraindicatedInjuries are injury protocol ids that prevent this exercise.
	ContraindicatedInjuries []string `json:"contraindicatedInjuries,omitempty" yaml:"contraindicatedInjuries"`
}

// Meal is a nutrition suggestion referenced from the phase guidelines.
type Meal struct {
	ID              string       `json:"id"                        yaml:"id"`
	Name            i18n.Text    `json:"name"                      yaml:"name"`
	Type            string       `json:"type"                      yaml:"type"`
	Calories        int          `json:"calories"                  yaml:"calories"`
	Protein         float64      `json:"protein"                   yaml:"protein"`
	Carbs           float64      `json:"carbs"                     yaml:"carbs"`
	Fat             float64      `json:"fat"                       yaml:"fat"`
	Ingredients     []Ingredient `json:"ingredients"               yaml:"ingredients"`
	Recipe          i18n.Text    `json:"recipe,omitempty"          yaml:"recipe"`
	PrepTimeMinutes int          `json:"prepTimeMinutes,omitempty" yaml:"prepTimeMinutes"`
}

// Ingredient is a single line of a meal.
type Ingredient struct {
	Name     i18n.Text `json:"name"     yaml:"name"`
	Amount   string    `json:"amount"   yaml:"amount"`
	Calories float64   `json:"calories" yaml:"calories"`
	Protein  float64   `json:"protein"  yaml:"protein"`
	Carbs    float64   `json:"carbs"    yaml:"carbs"`
	Fat      float64   `json:"fat"      yaml:"fat"`
}

// InjuryProtocol maps a body part to exercises to avoid and safe alternatives.
type InjuryProtocol struct {
	ID                   string    `json:"id"                   yaml:"id"`
	Name                 i18n.Text `json:"name"                 yaml:"name"`
	BodyPart             string    `json:"bodyPart"             yaml:"bodyPart"`
	Severity             string    `json:"severity"             yaml:"severity"`
	RestrictedExercises  []string  `json:"restrictedExercises"  yaml:"restrictedExercises"`
	RecommendedExercises []string  `json:"recommendedExercises" yaml:"recommendedExercises"`
	RecoveryProtocol     string    `json:"recoveryProtocol,omitempty" yaml:"recoveryProtocol"`
}
