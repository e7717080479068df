// Package coach guides a user through the training program.
//
// [Machine] is the pure progression state machine: it maps a [Session] and an [Event] to the next session and the
// [Effect] values the caller must execute. [Service] owns the sessions of all users, serializes their events and
// executes the effects against the progression store.
package coach

import (
	"slices"
	"time"

	"github.com/myrjola/petracoach/internal/adaptation"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/program"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
)

var (
	// ErrRejected is returned when the event is not accepted on the current screen.
	ErrRejected = errors.NewSentinel("event rejected")
	// ErrUnknownPhase is returned when navigating to a phase that is not part of the program.
	ErrUnknownPhase = errors.NewSentinel("unknown phase")
)

// Screen is the state of the progression state machine.
type Screen string

const (
	ScreenPhaseIntro    Screen = "phase_intro"
	ScreenDayPrep       Screen = "day_prep"
	ScreenRestDay       Screen = "rest_day"
	ScreenWorkout       Screen = "workout"
	ScreenFeedback      Screen = "feedback"
	ScreenRecovery      Screen = "recovery"
	ScreenPhaseComplete Screen = "phase_complete"
	ScreenProgression   Screen = "progression"
)

// WorkoutCapture is the workout in progress.
type WorkoutCapture struct {
	WorkoutID string                          `json:"workoutId"`
	StartedAt time.Time                       `json:"startedAt"`
	Exercises []progression.CompletedExercise `json:"exercises"`
}

// FeedbackCapture accumulates the feedback of the workout in progress.
type FeedbackCapture struct {
	RPE         *int                     `json:"rpe,omitempty"`
	Confidence  *int                     `json:"confidence,omitempty"`
	PainReports []progression.PainReport `json:"painReports"`
	Notes       string                   `json:"notes"`
}

// Session is the complete, serializable state of a user's coaching session.
type Session struct {
	Screen      Screen                  `json:"screen"`
	Progression progression.Progression `json:"progression"`
	// Workout is nil unless a workout has been started and not yet recorded.
	Workout  *WorkoutCapture `json:"workout,omitempty"`
	Feedback FeedbackCapture `json:"feedback"`
}

// NewSession starts a session on the phase intro screen of p's current phase.
func NewSession(p progression.Progression) Session {
	return Session{
		Screen:      ScreenPhaseIntro,
		Progression: p,
		Workout:     nil,
		Feedback:    emptyFeedback(),
	}
}

func emptyFeedback() FeedbackCapture {
	return FeedbackCapture{RPE: nil, Confidence: nil, PainReports: []progression.PainReport{}, Notes: ""}
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	clone := s
	clone.Progression = s.Progression.Clone()
	if s.Workout != nil {
		w := *s.Workout
		w.Exercises = progression.CloneEach(s.Workout.Exercises, progression.CompletedExercise.Clone)
		clone.Workout = &w
	}
	clone.Feedback.RPE = ptr.Clone(s.Feedback.RPE)
	clone.Feedback.Confidence = ptr.Clone(s.Feedback.Confidence)
	clone.Feedback.PainReports = slices.Clone(s.Feedback.PainReports)
	return clone
}

// Event is a user action driving the state machine.
type Event interface {
	eventName() string
}

// Advance moves on from the current screen.
type Advance struct{}

// CompleteWorkout finishes logging the workout in progress.
type CompleteWorkout struct {
	Exercises []progression.CompletedExercise
}

// SetRPE records the rate of perceived exertion, 1 to 5.
type SetRPE struct{ Value int }

// SetConfidence records the confidence rating, 1 to 5.
type SetConfidence struct{ Value int }

// ReportPain adds a pain report to the feedback.
type ReportPain struct{ Report progression.PainReport }

// SetNotes replaces the free text notes of the feedback.
type SetNotes struct{ Notes string }

// GoToPhase resets the session to the intro of a phase regardless of the current screen.
type GoToPhase struct{ PhaseID string }

func (Advance) eventName() string         { return "advance" }
func (CompleteWorkout) eventName() string { return "complete_workout" }
func (SetRPE) eventName() string          { return "set_rpe" }
func (SetConfidence) eventName() string   { return "set_confidence" }
func (ReportPain) eventName() string      { return "report_pain" }
func (SetNotes) eventName() string        { return "set_notes" }
func (GoToPhase) eventName() string       { return "go_to_phase" }

// Effect is a side effect requested by a transition.
type Effect interface {
	effectName() string
}

// SaveProgression asks the caller to persist the progression of the new session.
type SaveProgression struct{}

// ContentInconsistency reports program content that could not be resolved. The machine already degraded gracefully.
type ContentInconsistency struct {
	PhaseID   string
	Day       int
	WorkoutID string
	Err       error
}

// Adapted reports the proposals merged into the adaptations on workout completion.
type Adapted struct {
	Proposals []adaptation.Proposal
}

func (SaveProgression) effectName() string      { return "save_progression" }
func (ContentInconsistency) effectName() string { return "content_inconsistency" }
func (Adapted) effectName() string              { return "adapted" }

// Content is the read-only program content the state machine navigates.
type Content interface {
	ProgramID() string
	Phases() []program.Phase
	ResolvePhase(programID, phaseID string) (program.Phase, error)
	FirstPhase() (program.Phase, error)
	NextPhase(phaseID string) (program.Phase, bool)
	ResolveWorkout(workoutID string) (program.Workout, error)
	ResolveExercise(exerciseID string) (program.Exercise, error)
	InjuryProtocolFor(bodyPart string) (program.InjuryProtocol, bool)
}
