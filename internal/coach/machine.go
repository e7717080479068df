package coach

import (
	"log/slog"
	"math"
	"time"

	"github.com/myrjola/petracoach/internal/adaptation"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/program"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
)

const (
	minRating = 1
	maxRating = 5
)

// Machine is the progression state machine. It holds no state of its own.
type Machine struct {
	content Content
	now     func() time.Time
}

// NewMachine creates a state machine navigating content. now stamps started and completed workouts.
func NewMachine(content Content, now func() time.Time) Machine {
	return Machine{content: content, now: now}
}

// Transition computes the session following event. s is never modified.
//
// Events that the current screen does not accept return [ErrRejected] together with an unchanged copy of s.
func (m Machine) Transition(s Session, event Event) (Session, []Effect, error) {
	next := s.Clone()

	if goTo, ok := event.(GoToPhase); ok {
		return m.goToPhase(next, goTo.PhaseID)
	}

	switch next.Screen {
	case ScreenPhaseIntro:
		if _, ok := event.(Advance); ok {
			return m.leavePhaseIntro(next)
		}
	case ScreenDayPrep:
		if _, ok := event.(Advance); ok {
			return m.startWorkout(next)
		}
	case ScreenWorkout:
		if e, ok := event.(CompleteWorkout); ok {
			return m.completeWorkout(next, e)
		}
	case ScreenFeedback:
		return m.captureFeedback(next, event)
	case ScreenRecovery:
		if _, ok := event.(Advance); ok {
			return m.recordWorkout(next)
		}
	case ScreenRestDay:
		if _, ok := event.(Advance); ok {
			return m.nextDay(next, nil)
		}
	case ScreenPhaseComplete:
		if _, ok := event.(Advance); ok {
			next.Screen = ScreenProgression
			return next, nil, nil
		}
	case ScreenProgression:
		if _, ok := event.(Advance); ok {
			return m.nextPhase(next)
		}
	}

	return s.Clone(), nil, rejected(s.Screen, event)
}

func rejected(screen Screen, event Event) error {
	return errors.Wrap(ErrRejected, "transition",
		slog.String("screen", string(screen)),
		slog.String("event", event.eventName()))
}

// todaysWorkout resolves the workout scheduled for the current day.
func (m Machine) todaysWorkout(s Session) (program.WorkoutReference, program.Workout, error) {
	p := s.Progression
	phase, err := m.content.ResolvePhase(p.PackID, p.CurrentPhaseID)
	if err != nil {
		return program.WorkoutReference{}, program.Workout{}, err //nolint:wrapcheck // annotated by the accessor.
	}
	ref, ok := phase.ScheduledWorkout(p.CurrentDay)
	if !ok {
		return program.WorkoutReference{}, program.Workout{}, errNoWorkoutScheduled
	}
	workout, err := m.content.ResolveWorkout(ref.ID)
	if err != nil {
		return ref, program.Workout{}, err //nolint:wrapcheck // annotated by the accessor.
	}
	return ref, workout, nil
}

var errNoWorkoutScheduled = errors.NewSentinel("no workout scheduled")

func (m Machine) leavePhaseIntro(s Session) (Session, []Effect, error) {
	if _, _, err := m.todaysWorkout(s); err != nil {
		s.Screen = ScreenRestDay
		return s, nil, nil
	}
	s.Screen = ScreenDayPrep
	return s, nil, nil
}

func (m Machine) startWorkout(s Session) (Session, []Effect, error) {
	ref, _, err := m.todaysWorkout(s)
	if errors.Is(err, errNoWorkoutScheduled) {
		s.Screen = ScreenRestDay
		return s, nil, nil
	}
	if err != nil {
		s.Screen = ScreenRestDay
		return s, []Effect{ContentInconsistency{
			PhaseID:   s.Progression.CurrentPhaseID,
			Day:       s.Progression.CurrentDay,
			WorkoutID: ref.ID,
			Err:       err,
		}}, nil
	}
	s.Screen = ScreenWorkout
	s.Workout = &WorkoutCapture{
		WorkoutID: ref.ID,
		StartedAt: m.now(),
		Exercises: []progression.CompletedExercise{},
	}
	return s, nil, nil
}

func (m Machine) completeWorkout(s Session, e CompleteWorkout) (Session, []Effect, error) {
	if s.Workout == nil || !validExercises(e.Exercises) {
		return s, nil, rejected(s.Screen, e)
	}
	s.Workout.Exercises = progression.CloneEach(e.Exercises, progression.CompletedExercise.Clone)
	if s.Workout.Exercises == nil {
		s.Workout.Exercises = []progression.CompletedExercise{}
	}
	s.Screen = ScreenFeedback
	return s, nil, nil
}

func (m Machine) captureFeedback(s Session, event Event) (Session, []Effect, error) {
	switch e := event.(type) {
	case SetRPE:
		if !validRating(e.Value) {
			return s, nil, rejected(s.Screen, event)
		}
		s.Feedback.RPE = ptr.Ref(e.Value)
	case SetConfidence:
		if !validRating(e.Value) {
			return s, nil, rejected(s.Screen, event)
		}
		s.Feedback.Confidence = ptr.Ref(e.Value)
	case ReportPain:
		if e.Report.BodyPart == "" || !validRating(e.Report.Severity) {
			return s, nil, rejected(s.Screen, event)
		}
		s.Feedback.PainReports = append(s.Feedback.PainReports, e.Report)
	case SetNotes:
		s.Feedback.Notes = e.Notes
	case Advance:
		if s.Feedback.RPE == nil || s.Feedback.Confidence == nil {
			return s, nil, rejected(s.Screen, event)
		}
		s.Screen = ScreenRecovery
	default:
		return s, nil, rejected(s.Screen, event)
	}
	return s, nil, nil
}

// validExercises reports whether every logged exercise names its exercise and no set has negative reps or weight.
func validExercises(exercises []progression.CompletedExercise) bool {
	for _, e := range exercises {
		if e.ExerciseID == "" {
			return false
		}
		for _, set := range e.Sets {
			if set.Reps < 0 || (set.Weight != nil && (*set.Weight < 0 || math.IsNaN(*set.Weight))) {
				return false
			}
		}
	}
	return true
}

func validRating(v int) bool {
	return v >= minRating && v <= maxRating
}

// recordWorkout appends the finished workout to the history, adapts future workouts once enough history exists and
// moves on to the next day.
func (m Machine) recordWorkout(s Session) (Session, []Effect, error) {
	if s.Workout == nil || s.Feedback.RPE == nil || s.Feedback.Confidence == nil {
		return s, nil, rejected(s.Screen, Advance{})
	}

	now := m.now()
	p := &s.Progression
	p.CompletedWorkouts = append(p.CompletedWorkouts, progression.CompletedWorkout{
		WorkoutID:   s.Workout.WorkoutID,
		Date:        now.Format(progression.DateLayout),
		CompletedAt: now,
		Exercises:   s.Workout.Exercises,
		RPE:         *s.Feedback.RPE,
		Confidence:  *s.Feedback.Confidence,
		PainReports: s.Feedback.PainReports,
		Notes:       s.Feedback.Notes,
	})

	var effects []Effect
	if len(p.CompletedWorkouts) >= adaptation.MinHistory {
		proposals := adaptation.Evaluate(p.RecentWorkouts(adaptation.WindowSize), p.Telemetry, p.Adaptations, m.content)
		p.Adaptations = adaptation.Merge(p.Adaptations, proposals)
		if len(proposals) > 0 {
			effects = append(effects, Adapted{Proposals: proposals})
		}
	}

	s, dayEffects, err := m.nextDay(s, effects)
	return s, append(dayEffects, SaveProgression{}), err
}

// nextDay increments the day and continues with the day prep or, past the last day, with the phase completion.
func (m Machine) nextDay(s Session, effects []Effect) (Session, []Effect, error) {
	phase, err := m.content.ResolvePhase(s.Progression.PackID, s.Progression.CurrentPhaseID)
	if err != nil {
		// Without a phase there is no schedule to follow, so the user can only navigate to another phase.
		return s, append(effects, ContentInconsistency{
			PhaseID:   s.Progression.CurrentPhaseID,
			Day:       s.Progression.CurrentDay,
			WorkoutID: "",
			Err:       err,
		}), nil
	}

	s.Progression.CurrentDay++
	s.Workout = nil
	s.Feedback = emptyFeedback()
	if s.Progression.CurrentDay > phase.TotalDays() {
		s.Screen = ScreenPhaseComplete
		return s, effects, nil
	}
	s.Screen = ScreenDayPrep
	return s, effects, nil
}

func (m Machine) nextPhase(s Session) (Session, []Effect, error) {
	next, ok := m.content.NextPhase(s.Progression.CurrentPhaseID)
	if !ok {
		first, err := m.content.FirstPhase()
		if err != nil {
			return s, nil, errors.Wrap(err, "wrap around to first phase")
		}
		next = first
	}
	return m.enterPhase(s, next.ID), nil, nil
}

func (m Machine) goToPhase(s Session, phaseID string) (Session, []Effect, error) {
	if _, err := m.content.ResolvePhase(s.Progression.PackID, phaseID); err != nil {
		return s, nil, errors.Wrap(errors.Join(ErrUnknownPhase, err), "go to phase", slog.String("phase_id", phaseID))
	}
	return m.enterPhase(s, phaseID), nil, nil
}

func (m Machine) enterPhase(s Session, phaseID string) Session {
	s.Screen = ScreenPhaseIntro
	s.Progression.CurrentPhaseID = phaseID
	s.Progression.CurrentDay = 1
	s.Workout = nil
	s.Feedback = emptyFeedback()
	return s
}

// Resume creates the session of a loaded progression. The screen is not persisted, so the session starts at the
// phase intro unless the stored day is already past the end of the phase.
func (m Machine) Resume(p progression.Progression) Session {
	s := NewSession(p)
	phase, err := m.content.ResolvePhase(p.PackID, p.CurrentPhaseID)
	if err == nil && p.CurrentDay > phase.TotalDays() {
		s.Screen = ScreenPhaseComplete
	}
	return s
}
