// Package progression holds the per-user training record and the stores that persist it.
package progression

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/ptr"
)

// ErrNotFound is returned by [Store.Load] when no progression exists for the user.
var ErrNotFound = errors.NewSentinel("progression not found")

// DateLayout formats [CompletedWorkout.Date].
const DateLayout = time.DateOnly

// Progression is the durable training record of a single user.
type Progression struct {
	UserID         string `json:"userId"`
	PackID         string `json:"packId"`
	CurrentPhaseID string `json:"currentPhaseId"`
	// CurrentDay is 1-indexed within the current phase.
	CurrentDay        int                `json:"currentDay"`
	CompletedWorkouts []CompletedWorkout `json:"completedWorkouts"`
	Adaptations       Adaptations        `json:"adaptations"`
	Telemetry         Telemetry          `json:"telemetry"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// New creates the progression of a user starting the program at day 1 of phaseID.
func New(userID, packID, phaseID string, now time.Time) Progression {
	return Progression{
		UserID:            userID,
		PackID:            packID,
		CurrentPhaseID:    phaseID,
		CurrentDay:        1,
		CompletedWorkouts: nil,
		Adaptations:       NeutralAdaptations(),
		Telemetry:         DefaultTelemetry(now),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// RecentWorkouts returns at most n of the latest completed workouts, most recent last.
func (p Progression) RecentWorkouts(n int) []CompletedWorkout {
	start := max(len(p.CompletedWorkouts)-n, 0)
	return p.CompletedWorkouts[start:]
}

// Clone returns a deep copy so that the copy can be handed to another goroutine.
func (p Progression) Clone() Progression {
	clone := p
	clone.CompletedWorkouts = CloneEach(p.CompletedWorkouts, CompletedWorkout.Clone)
	clone.Adaptations = p.Adaptations.Clone()
	clone.Telemetry = p.Telemetry.Clone()
	return clone
}

// CompletedWorkout is an immutable record of a finished workout cycle.
type CompletedWorkout struct {
	WorkoutID string `json:"workoutId"`
	// Date is the calendar date in [DateLayout].
	Date        string              `json:"date"`
	CompletedAt time.Time           `json:"completedAt"`
	Exercises   []CompletedExercise `json:"exercises"`
	RPE         int                 `json:"rpe"`
	Confidence  int                 `json:"confidence"`
	PainReports []PainReport        `json:"painReports"`
	Notes       string              `json:"notes,omitempty"`
}

func (w CompletedWorkout) Clone() CompletedWorkout {
	clone := w
	clone.Exercises = CloneEach(w.Exercises, CompletedExercise.Clone)
	clone.PainReports = slices.Clone(w.PainReports)
	return clone
}

// CompletedExercise is what the user logged for a single exercise.
type CompletedExercise struct {
	ExerciseID string         `json:"exerciseId"`
	Sets       []CompletedSet `json:"sets"`
	Skipped    bool           `json:"skipped,omitempty"`
	SkipReason string         `json:"skipReason,omitempty"`
}

func (e CompletedExercise) Clone() CompletedExercise {
	clone := e
	clone.Sets = CloneEach(e.Sets, func(s CompletedSet) CompletedSet {
		return CompletedSet{Reps: s.Reps, Weight: ptr.Clone(s.Weight), Completed: s.Completed}
	})
	return clone
}

// CloneEach deep copies s with clone. A nil slice stays nil.
func CloneEach[T any](s []T, clone func(T) T) []T {
	if s == nil {
		return nil
	}
	clones := make([]T, len(s))
	for i, v := range s {
		clones[i] = clone(v)
	}
	return clones
}

// CompletedSet is a single logged set. Weight is nil for body weight or unweighted sets.
type CompletedSet struct {
	Reps      int      `json:"reps"`
	Weight    *float64 `json:"weight,omitempty"`
	Completed bool     `json:"completed"`
}

// PainReport is a pain note captured during feedback. Severity is 1 to 5.
type PainReport struct {
	BodyPart string `json:"bodyPart"`
	Severity int    `json:"severity"`
	Note     string `json:"note,omitempty"`
}

// Adaptations is the current adjustment policy applied on top of workout prescriptions.
//
// A missing key means no override for that exercise. Adaptations values are replaced wholesale and never mutated in
// place once stored in a [Progression].
type Adaptations struct {
	// ExerciseReplacements maps an original exercise id to its substitute.
	ExerciseReplacements map[string]string `json:"exerciseReplacements"`
	// WeightOverrides maps an exercise id to an absolute weight in kilograms.
	WeightOverrides map[string]float64 `json:"weightOverrides"`
	// VolumeMultipliers maps an exercise id to a set count multiplier.
	VolumeMultipliers map[string]float64 `json:"volumeMultipliers"`
	// IntensityModifier scales every weight and set count. Below 1.0 means reduced intensity.
	IntensityModifier float64 `json:"intensityModifier"`
}

// NeutralAdaptations returns adaptations that leave every prescription unchanged.
func NeutralAdaptations() Adaptations {
	return Adaptations{
		ExerciseReplacements: map[string]string{},
		WeightOverrides:      map[string]float64{},
		VolumeMultipliers:    map[string]float64{},
		IntensityModifier:    1,
	}
}

// Clone returns a copy that shares no maps with a.
func (a Adaptations) Clone() Adaptations {
	return Adaptations{
		ExerciseReplacements: cloneMap(a.ExerciseReplacements),
		WeightOverrides:      cloneMap(a.WeightOverrides),
		VolumeMultipliers:    cloneMap(a.VolumeMultipliers),
		IntensityModifier:    a.IntensityModifier,
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return maps.Clone(m)
}

// Telemetry is a rollup of physiological metrics. Every delivery replaces the previous snapshot.
type Telemetry struct {
	AvgSleepHours     float64   `json:"avgSleepHours"`
	AvgSteps          int       `json:"avgSteps"`
	AvgHeartRate      float64   `json:"avgHeartRate"`
	AvgCaloriesBurned int       `json:"avgCaloriesBurned"`
	BodyWeight        *float64  `json:"bodyWeight,omitempty"`
	BodyFat           *float64  `json:"bodyFat,omitempty"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// DefaultTelemetry is the snapshot a progression starts with before any telemetry has been delivered.
func DefaultTelemetry(now time.Time) Telemetry {
	return Telemetry{
		AvgSleepHours:     7,
		AvgSteps:          8000,
		AvgHeartRate:      70,
		AvgCaloriesBurned: 2000,
		BodyWeight:        nil,
		BodyFat:           nil,
		LastUpdated:       now,
	}
}

func (t Telemetry) Clone() Telemetry {
	clone := t
	clone.BodyWeight = ptr.Clone(t.BodyWeight)
	clone.BodyFat = ptr.Clone(t.BodyFat)
	return clone
}

// Store persists progressions keyed by user id.
type Store interface {
	// Load returns the progression of userID or [ErrNotFound].
	Load(ctx context.Context, userID string) (Progression, error)
	// Save upserts the whole progression. Completed workouts already stored are never rewritten.
	Save(ctx context.Context, p Progression) error
}
