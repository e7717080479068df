package coach_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/petracoach/internal/coach"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/program"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
	"github.com/myrjola/petracoach/internal/testhelpers"
)

func loggedExercise(id string, weights ...float64) progression.CompletedExercise {
	sets := make([]progression.CompletedSet, 0, len(weights))
	for _, w := range weights {
		sets = append(sets, progression.CompletedSet{Reps: 10, Weight: ptr.Ref(w), Completed: true})
	}
	return progression.CompletedExercise{ExerciseID: id, Sets: sets, Skipped: false, SkipReason: ""}
}

func TestPrescribe_Adapted(t *testing.T) {
	pack := testhelpers.NewPack(t)
	s := newSession("foundation", 1)
	older := workoutWith(3, 3)
	older.Exercises = []progression.CompletedExercise{loggedExercise("lunge2", 20, 22)}
	newer := workoutWith(3, 3)
	newer.Exercises = []progression.CompletedExercise{loggedExercise("row1")}
	s.Progression.CompletedWorkouts = []progression.CompletedWorkout{older, newer}
	s.Progression.Adaptations = progression.Adaptations{
		ExerciseReplacements: map[string]string{"sq1": "lunge2"},
		WeightOverrides:      map[string]float64{"bp1": 70},
		VolumeMultipliers:    map[string]float64{},
		IntensityModifier:    0.9,
	}

	plan, err := coach.Prescribe(pack, s, i18n.English)
	if err != nil {
		t.Fatalf("Prescribe: %v", err)
	}

	want := coach.DayPlan{
		PhaseID:         "foundation",
		PhaseName:       "Foundation",
		Day:             1,
		TotalDays:       7,
		Week:            1,
		Weekday:         1,
		RestDay:         false,
		WorkoutID:       "full-body-a",
		WorkoutName:     "Full body A",
		WorkoutType:     program.WorkoutTypeStrength,
		DurationMinutes: 60,
		Warmup:          "",
		Cooldown:        "",
		Blocks: []coach.PlannedBlock{
			{Exercises: []coach.PlannedExercise{
				{
					ExerciseID:         "lunge2",
					ReplacedExerciseID: "sq1",
					Name:               "Lunge",
					ReplacedName:       "Squat",
					FormCues:           []string{"Knee over toes"},
					Sets:               3,
					Reps:               "10",
					RestSeconds:        90,
					BaseWeight:         ptr.Ref(21.0),
					Weight:             ptr.Ref(19.0),
				},
				{
					ExerciseID:         "bp1",
					ReplacedExerciseID: "",
					Name:               "Bench press",
					ReplacedName:       "",
					FormCues:           nil,
					Sets:               3,
					Reps:               "10",
					RestSeconds:        90,
					BaseWeight:         nil,
					Weight:             ptr.Ref(63.0),
				},
			}, Notes: ""},
			{Exercises: []coach.PlannedExercise{
				{
					ExerciseID:         "row1",
					ReplacedExerciseID: "",
					Name:               "Row",
					ReplacedName:       "",
					FormCues:           nil,
					Sets:               3,
					Reps:               "8-12",
					RestSeconds:        60,
					BaseWeight:         nil,
					Weight:             nil,
				},
			}, Notes: ""},
		},
		Nutrition: program.NutritionGuidelines{
			CaloriesTarget: 2400,
			ProteinGrams:   160,
			CarbsGrams:     250,
			FatGrams:       80,
			MealsPerDay:    4,
			MealIDs:        []string{"oats"},
		},
		Deloaded:                  true,
		IntensityReductionPercent: 10,
		ActiveReplacements:        1,
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPrescribe_RestDay(t *testing.T) {
	plan, err := coach.Prescribe(testhelpers.NewPack(t), newSession("foundation", 2), i18n.English)
	if err != nil {
		t.Fatalf("Prescribe: %v", err)
	}
	if !plan.RestDay || plan.WorkoutID != "" || len(plan.Blocks) != 0 {
		t.Errorf("want rest day, got %+v", plan)
	}
	if plan.Weekday != 2 || plan.Deloaded {
		t.Errorf("weekday %d, deloaded %t", plan.Weekday, plan.Deloaded)
	}
}

func TestPrescribe_OmitsUnresolvedExercises(t *testing.T) {
	s := newSession("foundation", 1)
	s.Progression.Adaptations.ExerciseReplacements["bp1"] = "ghost"

	plan, err := coach.Prescribe(testhelpers.NewPack(t), s, i18n.English)
	if err != nil {
		t.Fatalf("Prescribe: %v", err)
	}
	var ids []string
	for _, e := range plan.Blocks[0].Exercises {
		ids = append(ids, e.ExerciseID)
	}
	if diff := cmp.Diff([]string{"sq1"}, ids); diff != "" {
		t.Errorf("exercise ids mismatch (-want +got):\n%s", diff)
	}
}

func TestPrescribe_DefaultWorkoutName(t *testing.T) {
	files := testhelpers.PackFiles()
	files["workouts/full-body-b.json"] = strings.Replace(files["workouts/full-body-b.json"],
		`"name": {"pl": "Całe ciało B", "en": "Full body B"}`, `"name": {}`, 1)
	pack := program.New(testhelpers.NewPack(t).Manifest(), files)

	plan, err := coach.Prescribe(pack, newSession("foundation", 3), i18n.Polish)
	if err != nil {
		t.Fatalf("Prescribe: %v", err)
	}
	if plan.WorkoutName != "Trening" {
		t.Errorf("want default name Trening, got %q", plan.WorkoutName)
	}
}

func TestBuildOverview(t *testing.T) {
	pack := testhelpers.NewPack(t)

	s := newSession("foundation", 3)
	first := workoutWith(3, 4)
	second := workoutWith(4, 5)
	second.PainReports = []progression.PainReport{{BodyPart: "knee", Severity: 2, Note: ""}}
	s.Progression.CompletedWorkouts = []progression.CompletedWorkout{first, second}
	s.Progression.Adaptations.IntensityModifier = 0.85

	got, err := coach.BuildOverview(pack, s, i18n.English)
	if err != nil {
		t.Fatalf("BuildOverview: %v", err)
	}
	want := coach.Overview{
		ProgramID:         "strength-101",
		PhaseID:           "foundation",
		PhaseName:         "Foundation",
		PhaseIndex:        0,
		PhaseCount:        2,
		Day:               3,
		TotalDays:         7,
		Week:              1,
		PhaseProgress:     43,
		TotalWorkouts:     2,
		AvgRPE:            ptr.Ref(3.5),
		AvgConfidence:     ptr.Ref(4.5),
		PainReports:       1,
		IntensityModifier: 0.85,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overview mismatch (-want +got):\n%s", diff)
	}

	empty, err := coach.BuildOverview(pack, newSession("build", 14), i18n.Polish)
	if err != nil {
		t.Fatalf("BuildOverview: %v", err)
	}
	if empty.AvgRPE != nil || empty.AvgConfidence != nil {
		t.Errorf("averages without history: %v %v", empty.AvgRPE, empty.AvgConfidence)
	}
	if empty.PhaseIndex != 1 || empty.PhaseProgress != 100 || empty.Week != 2 || empty.PhaseName != "Budowa" {
		t.Errorf("unexpected overview %+v", empty)
	}
}
