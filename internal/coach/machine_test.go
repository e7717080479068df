package coach_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/petracoach/internal/adaptation"
	"github.com/myrjola/petracoach/internal/coach"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/program"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
	"github.com/myrjola/petracoach/internal/testhelpers"
)

var testNow = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newMachine(t *testing.T) coach.Machine {
	t.Helper()
	return coach.NewMachine(testhelpers.NewPack(t), fixedNow)
}

func newSession(phaseID string, day int) coach.Session {
	p := progression.New("user-1", "strength-101", phaseID, testNow)
	p.CurrentDay = day
	return coach.NewSession(p)
}

func transition(t *testing.T, m coach.Machine, s coach.Session, event coach.Event) (coach.Session, []coach.Effect) {
	t.Helper()
	next, effects, err := m.Transition(s, event)
	if err != nil {
		t.Fatalf("Transition(%s, %T): %v", s.Screen, event, err)
	}
	return next, effects
}

func expectScreen(t *testing.T, s coach.Session, screen coach.Screen, day int) {
	t.Helper()
	if s.Screen != screen || s.Progression.CurrentDay != day {
		t.Fatalf("want %s on day %d, got %s on day %d", screen, day, s.Screen, s.Progression.CurrentDay)
	}
}

func hasEffect[E coach.Effect](effects []coach.Effect) bool {
	for _, e := range effects {
		if _, ok := e.(E); ok {
			return true
		}
	}
	return false
}

func squatLog(weight float64) []progression.CompletedExercise {
	return []progression.CompletedExercise{{
		ExerciseID: "sq1",
		Sets: []progression.CompletedSet{
			{Reps: 10, Weight: ptr.Ref(weight), Completed: true},
			{Reps: 10, Weight: ptr.Ref(weight), Completed: true},
		},
		Skipped:    false,
		SkipReason: "",
	}}
}

func loggedSet(exerciseID string, reps int, weight *float64) []progression.CompletedExercise {
	return []progression.CompletedExercise{{
		ExerciseID: exerciseID,
		Sets:       []progression.CompletedSet{{Reps: reps, Weight: weight, Completed: true}},
		Skipped:    false,
		SkipReason: "",
	}}
}

// trainDay drives a session from day_prep through the recovery screen and returns the state after recovery.
func trainDay(
	t *testing.T,
	m coach.Machine,
	s coach.Session,
	rpe, confidence int,
	pain ...progression.PainReport,
) (coach.Session, []coach.Effect) {
	t.Helper()
	s, _ = transition(t, m, s, coach.Advance{})
	if s.Screen != coach.ScreenWorkout {
		t.Fatalf("want workout screen, got %s", s.Screen)
	}
	s, _ = transition(t, m, s, coach.CompleteWorkout{Exercises: squatLog(60)})
	s, _ = transition(t, m, s, coach.SetRPE{Value: rpe})
	s, _ = transition(t, m, s, coach.SetConfidence{Value: confidence})
	for _, report := range pain {
		s, _ = transition(t, m, s, coach.ReportPain{Report: report})
	}
	s, _ = transition(t, m, s, coach.SetNotes{Notes: "felt ok"})
	s, _ = transition(t, m, s, coach.Advance{})
	if s.Screen != coach.ScreenRecovery {
		t.Fatalf("want recovery screen, got %s", s.Screen)
	}
	return transition(t, m, s, coach.Advance{})
}

func TestMachine_FoundationWeek(t *testing.T) {
	m := newMachine(t)
	s := newSession("foundation", 1)

	s, _ = transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenDayPrep, 1)

	s, effects := trainDay(t, m, s, 3, 4)
	expectScreen(t, s, coach.ScreenDayPrep, 2)
	if !hasEffect[coach.SaveProgression](effects) {
		t.Errorf("recording a workout must save the progression, effects %v", effects)
	}
	if s.Workout != nil || s.Feedback.RPE != nil || len(s.Feedback.PainReports) != 0 {
		t.Errorf("captures not cleared: %+v %+v", s.Workout, s.Feedback)
	}

	// Tuesday is a rest day.
	s, effects = transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenRestDay, 2)
	if len(effects) != 0 {
		t.Errorf("scheduled rest day must not produce effects, got %v", effects)
	}
	s, effects = transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenDayPrep, 3)
	if hasEffect[coach.SaveProgression](effects) {
		t.Errorf("rest day must not save")
	}

	s, _ = trainDay(t, m, s, 3, 4)
	expectScreen(t, s, coach.ScreenDayPrep, 4)
	s, _ = transition(t, m, s, coach.Advance{})
	s, _ = transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenDayPrep, 5)

	s, effects = trainDay(t, m, s, 3, 4)
	expectScreen(t, s, coach.ScreenDayPrep, 6)
	if hasEffect[coach.Adapted](effects) {
		t.Errorf("neutral feedback must not adapt, effects %v", effects)
	}

	for day := 6; day <= 7; day++ {
		s, _ = transition(t, m, s, coach.Advance{})
		expectScreen(t, s, coach.ScreenRestDay, day)
		s, _ = transition(t, m, s, coach.Advance{})
	}
	expectScreen(t, s, coach.ScreenPhaseComplete, 8)

	s, _ = transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenProgression, 8)

	s, _ = transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenPhaseIntro, 1)
	if s.Progression.CurrentPhaseID != "build" {
		t.Errorf("want phase build, got %s", s.Progression.CurrentPhaseID)
	}

	if got := len(s.Progression.CompletedWorkouts); got != 3 {
		t.Fatalf("want 3 completed workouts, got %d", got)
	}
	got := s.Progression.CompletedWorkouts[0]
	want := progression.CompletedWorkout{
		WorkoutID:   "full-body-a",
		Date:        "2026-03-02",
		CompletedAt: testNow,
		Exercises:   squatLog(60),
		RPE:         3,
		Confidence:  4,
		PainReports: []progression.PainReport{},
		Notes:       "felt ok",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("recorded workout mismatch (-want +got):\n%s", diff)
	}
	if ids := []string{
		s.Progression.CompletedWorkouts[1].WorkoutID,
		s.Progression.CompletedWorkouts[2].WorkoutID,
	}; !cmp.Equal(ids, []string{"full-body-b", "conditioning"}) {
		t.Errorf("unexpected workout order %v", ids)
	}
}

func TestMachine_PhaseIntroOnRestDay(t *testing.T) {
	m := newMachine(t)
	s, _ := transition(t, m, newSession("foundation", 2), coach.Advance{})
	expectScreen(t, s, coach.ScreenRestDay, 2)
}

func TestMachine_RecoveryOnLastDayCompletesPhase(t *testing.T) {
	m := newMachine(t)
	s := newSession("build", 14)
	s.Screen = coach.ScreenDayPrep

	s, _ = trainDay(t, m, s, 3, 4)
	expectScreen(t, s, coach.ScreenPhaseComplete, 15)
	if s.Workout != nil {
		t.Errorf("workout capture kept after phase completion: %+v", s.Workout)
	}
	if s.Feedback.RPE != nil || s.Feedback.Confidence != nil || len(s.Feedback.PainReports) != 0 || s.Feedback.Notes != "" {
		t.Errorf("feedback capture kept after phase completion: %+v", s.Feedback)
	}
	if got := len(s.Progression.CompletedWorkouts); got != 1 {
		t.Errorf("want 1 completed workout, got %d", got)
	}
}

func TestMachine_WrapsToFirstPhase(t *testing.T) {
	m := newMachine(t)
	s := newSession("build", 15)
	s.Screen = coach.ScreenProgression
	s, _ = transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenPhaseIntro, 1)
	if s.Progression.CurrentPhaseID != "foundation" {
		t.Errorf("want wrap to foundation, got %s", s.Progression.CurrentPhaseID)
	}
}

func TestMachine_Rejected(t *testing.T) {
	m := newMachine(t)
	inFeedback := newSession("foundation", 1)
	inFeedback.Screen = coach.ScreenFeedback
	inFeedback.Workout = &coach.WorkoutCapture{WorkoutID: "full-body-a", StartedAt: testNow, Exercises: nil}

	tests := []struct {
		name   string
		screen coach.Screen
		event  coach.Event
	}{
		{"complete outside workout", coach.ScreenPhaseIntro, coach.CompleteWorkout{Exercises: nil}},
		{"rating on day prep", coach.ScreenDayPrep, coach.SetRPE{Value: 3}},
		{"advance during workout", coach.ScreenWorkout, coach.Advance{}},
		{"feedback without ratings", coach.ScreenFeedback, coach.Advance{}},
		{"rpe too low", coach.ScreenFeedback, coach.SetRPE{Value: 0}},
		{"rpe too high", coach.ScreenFeedback, coach.SetRPE{Value: 6}},
		{"confidence too low", coach.ScreenFeedback, coach.SetConfidence{Value: 0}},
		{"pain without body part", coach.ScreenFeedback,
			coach.ReportPain{Report: progression.PainReport{BodyPart: "", Severity: 3, Note: ""}}},
		{"pain severity out of range", coach.ScreenFeedback,
			coach.ReportPain{Report: progression.PainReport{BodyPart: "knee", Severity: 6, Note: ""}}},
		{"notes on recovery", coach.ScreenRecovery, coach.SetNotes{Notes: "late"}},
		{"complete on phase complete", coach.ScreenPhaseComplete, coach.CompleteWorkout{Exercises: nil}},
		{"negative reps", coach.ScreenWorkout, coach.CompleteWorkout{Exercises: loggedSet("sq1", -1, ptr.Ref(60.0))}},
		{"negative weight", coach.ScreenWorkout, coach.CompleteWorkout{Exercises: loggedSet("sq1", 10, ptr.Ref(-5.0))}},
		{"exercise without id", coach.ScreenWorkout, coach.CompleteWorkout{Exercises: loggedSet("", 10, nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := inFeedback.Clone()
			s.Screen = tt.screen
			next, effects, err := m.Transition(s, tt.event)
			if !errors.Is(err, coach.ErrRejected) {
				t.Fatalf("want ErrRejected, got %v", err)
			}
			if len(effects) != 0 {
				t.Errorf("rejected event produced effects %v", effects)
			}
			if diff := cmp.Diff(s, next); diff != "" {
				t.Errorf("rejected event changed the session (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMachine_GoToPhase(t *testing.T) {
	m := newMachine(t)
	s := newSession("foundation", 3)
	s.Screen = coach.ScreenFeedback
	s.Workout = &coach.WorkoutCapture{WorkoutID: "full-body-b", StartedAt: testNow, Exercises: squatLog(40)}
	s.Feedback.RPE = ptr.Ref(4)
	s.Feedback.PainReports = []progression.PainReport{{BodyPart: "knee", Severity: 2, Note: ""}}

	next, _ := transition(t, m, s, coach.GoToPhase{PhaseID: "build"})
	expectScreen(t, next, coach.ScreenPhaseIntro, 1)
	if next.Progression.CurrentPhaseID != "build" {
		t.Errorf("want build, got %s", next.Progression.CurrentPhaseID)
	}
	if next.Workout != nil || next.Feedback.RPE != nil || len(next.Feedback.PainReports) != 0 {
		t.Errorf("captures not cleared: %+v %+v", next.Workout, next.Feedback)
	}

	_, _, err := m.Transition(s, coach.GoToPhase{PhaseID: "peak"})
	if !errors.Is(err, coach.ErrUnknownPhase) || !errors.Is(err, program.ErrNotFound) {
		t.Errorf("want ErrUnknownPhase wrapping program.ErrNotFound, got %v", err)
	}
}

func TestMachine_AdaptsAfterThreeWorkouts(t *testing.T) {
	m := newMachine(t)
	s, _ := transition(t, m, newSession("build", 1), coach.Advance{})

	var effects []coach.Effect
	for i := range 2 {
		s, effects = trainDay(t, m, s, 5, 1)
		if hasEffect[coach.Adapted](effects) {
			t.Fatalf("adapted after %d workouts", i+1)
		}
		if diff := cmp.Diff(progression.NeutralAdaptations(), s.Progression.Adaptations); diff != "" {
			t.Fatalf("adaptations changed before three workouts (-want +got):\n%s", diff)
		}
	}

	s, effects = trainDay(t, m, s, 5, 1)
	if !hasEffect[coach.Adapted](effects) {
		t.Fatalf("want Adapted effect, got %v", effects)
	}
	if got := s.Progression.Adaptations.IntensityModifier; got != 0.85 {
		t.Errorf("want intensity 0.85, got %v", got)
	}
	var rules []adaptation.Rule
	for _, e := range effects {
		if adapted, ok := e.(coach.Adapted); ok {
			for _, p := range adapted.Proposals {
				rules = append(rules, p.Rule)
			}
		}
	}
	if diff := cmp.Diff([]adaptation.Rule{adaptation.RuleLowConfidence, adaptation.RuleHighRPE}, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestMachine_LowConfidenceWithModerateRPE(t *testing.T) {
	m := newMachine(t)
	s, _ := transition(t, m, newSession("build", 1), coach.Advance{})
	for range 3 {
		s, _ = trainDay(t, m, s, 4, 2)
	}
	if got := s.Progression.Adaptations.IntensityModifier; got != 0.85 {
		t.Errorf("want intensity 0.85, got %v", got)
	}
}

func TestMachine_PainReplacesExercises(t *testing.T) {
	m := newMachine(t)
	s, _ := transition(t, m, newSession("build", 1), coach.Advance{})
	s, _ = trainDay(t, m, s, 3, 3)
	s, _ = trainDay(t, m, s, 3, 3, progression.PainReport{BodyPart: "knee", Severity: 2, Note: ""})
	s, _ = trainDay(t, m, s, 3, 3, progression.PainReport{BodyPart: "knee", Severity: 4, Note: "sharp"})

	want := map[string]string{"sq1": "lunge2"}
	if diff := cmp.Diff(want, s.Progression.Adaptations.ExerciseReplacements); diff != "" {
		t.Errorf("replacements mismatch (-want +got):\n%s", diff)
	}
	if got := s.Progression.Adaptations.IntensityModifier; got != 1 {
		t.Errorf("want full intensity, got %v", got)
	}
}

func TestMachine_UnresolvableWorkout(t *testing.T) {
	pack := testhelpers.NewPack(t)
	manifest := pack.Manifest()
	manifest.Program.Phases[1].WorkoutSchedule.Workouts = []program.WorkoutReference{
		{ID: "broken-workout", DayOfWeek: nil, Type: program.WorkoutTypeStrength},
	}
	m := coach.NewMachine(program.New(manifest, testhelpers.PackFiles()), fixedNow)

	s, _ := transition(t, m, newSession("build", 1), coach.Advance{})
	expectScreen(t, s, coach.ScreenRestDay, 1)

	s = newSession("build", 1)
	s.Screen = coach.ScreenDayPrep
	s, effects := transition(t, m, s, coach.Advance{})
	expectScreen(t, s, coach.ScreenRestDay, 1)
	if !hasEffect[coach.ContentInconsistency](effects) {
		t.Errorf("want ContentInconsistency effect, got %v", effects)
	}
}

func TestMachine_DoesNotModifyInput(t *testing.T) {
	m := newMachine(t)
	s := newSession("foundation", 1)
	s.Screen = coach.ScreenFeedback
	s.Workout = &coach.WorkoutCapture{WorkoutID: "full-body-a", StartedAt: testNow, Exercises: squatLog(50)}
	before := s.Clone()

	next, _ := transition(t, m, s, coach.SetRPE{Value: 2})
	next, _ = transition(t, m, next, coach.ReportPain{Report: progression.PainReport{BodyPart: "knee", Severity: 3}})
	next.Workout.Exercises[0].Sets[0].Reps = 1

	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("input session modified (-before +after):\n%s", diff)
	}
}

func TestMachine_Resume(t *testing.T) {
	m := newMachine(t)
	tests := []struct {
		phase string
		day   int
		want  coach.Screen
	}{
		{"foundation", 3, coach.ScreenPhaseIntro},
		{"foundation", 8, coach.ScreenPhaseComplete},
		{"missing", 1, coach.ScreenPhaseIntro},
	}
	for _, tt := range tests {
		p := progression.New("user-1", "strength-101", tt.phase, testNow)
		p.CurrentDay = tt.day
		if got := m.Resume(p).Screen; got != tt.want {
			t.Errorf("Resume(%s, day %d) = %s, want %s", tt.phase, tt.day, got, tt.want)
		}
	}
}
