package progression_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/petracoach/internal/progression"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	p := progression.New("u1", "pack", "foundation", now)

	if p.CurrentDay != 1 || p.CurrentPhaseID != "foundation" {
		t.Errorf("position = %s/%d, want foundation/1", p.CurrentPhaseID, p.CurrentDay)
	}
	if diff := cmp.Diff(progression.NeutralAdaptations(), p.Adaptations); diff != "" {
		t.Errorf("adaptations not neutral (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(progression.DefaultTelemetry(now), p.Telemetry); diff != "" {
		t.Errorf("telemetry not default (-want +got):\n%s", diff)
	}
}

func TestProgression_RecentWorkouts(t *testing.T) {
	var p progression.Progression
	for i := range 7 {
		p.CompletedWorkouts = append(p.CompletedWorkouts, progression.CompletedWorkout{RPE: i + 1})
	}

	recent := p.RecentWorkouts(5)
	if len(recent) != 5 || recent[0].RPE != 3 || recent[4].RPE != 7 {
		t.Errorf("RecentWorkouts(5) = %+v", recent)
	}
	p.CompletedWorkouts = p.CompletedWorkouts[:2]
	if got := p.RecentWorkouts(5); len(got) != 2 {
		t.Errorf("RecentWorkouts on short history = %d entries, want 2", len(got))
	}
}

func TestProgression_CloneSharesNothing(t *testing.T) {
	weight := 40.0
	p := progression.New("u1", "pack", "foundation", time.Now())
	p.Adaptations.WeightOverrides["bp1"] = 50
	p.CompletedWorkouts = []progression.CompletedWorkout{{
		Exercises: []progression.CompletedExercise{{ExerciseID: "bp1", Sets: []progression.CompletedSet{
			{Reps: 5, Weight: &weight, Completed: true},
		}}},
	}}

	clone := p.Clone()
	clone.Adaptations.WeightOverrides["bp1"] = 60
	*clone.CompletedWorkouts[0].Exercises[0].Sets[0].Weight = 45

	if p.Adaptations.WeightOverrides["bp1"] != 50 {
		t.Error("clone shares the weight override map")
	}
	if weight != 40 {
		t.Error("clone shares set weights")
	}
}
