package program

import (
	"encoding/json"
	"log/slog"
	"path"
	"strings"

	"github.com/myrjola/petracoach/internal/errors"
)

// Pack is a loaded program pack. It is immutable after construction and safe for concurrent use.
type Pack struct {
	manifest Manifest
	// files holds text files keyed by their slash separated path without a leading slash.
	files map[string]string
}

// New creates a pack from an already decoded manifest and the text files of the pack.
//
// Workouts are looked up lazily from workouts/<id>.json in files.
func New(manifest Manifest, files map[string]string) *Pack {
	normalized := make(map[string]string, len(files))
	for name, content := range files {
		normalized[cleanPath(name)] = content
	}
	return &Pack{
		manifest: manifest,
		files:    normalized,
	}
}

// Manifest returns the manifest of the pack.
func (p *Pack) Manifest() Manifest {
	return p.manifest
}

// ProgramID returns the id of the program the pack defines.
func (p *Pack) ProgramID() string {
	return p.manifest.Program.ID
}

// Phases returns the phases of the program in order.
func (p *Pack) Phases() []Phase {
	return p.manifest.Program.Phases
}

// ResolvePhase finds a phase of the given program.
func (p *Pack) ResolvePhase(programID, phaseID string) (Phase, error) {
	if programID != p.manifest.Program.ID {
		return Phase{}, errors.Wrap(ErrNotFound, "resolve program", slog.String("program_id", programID))
	}
	return p.Phase(phaseID)
}

// Phase finds a phase of the pack's program.
func (p *Pack) Phase(phaseID string) (Phase, error) {
	for _, phase := range p.manifest.Program.Phases {
		if phase.ID == phaseID {
			return phase, nil
		}
	}
	return Phase{}, errors.Wrap(ErrNotFound, "resolve phase", slog.String("phase_id", phaseID))
}

// FirstPhase returns the phase a new user starts from.
func (p *Pack) FirstPhase() (Phase, error) {
	if len(p.manifest.Program.Phases) == 0 {
		return Phase{}, errors.Wrap(ErrNotFound, "program has no phases")
	}
	return p.manifest.Program.Phases[0], nil
}

// NextPhase returns the phase following phaseID in program order. The second return value is false when phaseID is
// the last phase or not part of the program.
func (p *Pack) NextPhase(phaseID string) (Phase, bool) {
	phases := p.manifest.Program.Phases
	for i, phase := range phases {
		if phase.ID == phaseID {
			if i+1 < len(phases) {
				return phases[i+1], true
			}
			return Phase{}, false
		}
	}
	return Phase{}, false
}

// ResolveWorkout reads workouts/<id>.json from the pack. A missing or malformed file resolves to [ErrNotFound].
func (p *Pack) ResolveWorkout(workoutID string) (Workout, error) {
	name := path.Join("workouts", workoutID+".json")
	raw, ok := p.files[name]
	if !ok {
		return Workout{}, errors.Wrap(ErrNotFound, "resolve workout", slog.String("workout_id", workoutID))
	}
	var workout Workout
	if err := json.Unmarshal([]byte(raw), &workout); err != nil {
		return Workout{}, errors.Wrap(errors.Join(ErrNotFound, err), "decode workout",
			slog.String("workout_id", workoutID))
	}
	return workout, nil
}

// ResolveExercise finds exercise metadata by id.
func (p *Pack) ResolveExercise(exerciseID string) (Exercise, error) {
	for _, exercise := range p.manifest.Exercises {
		if exercise.ID == exerciseID {
			return exercise, nil
		}
	}
	return Exercise{}, errors.Wrap(ErrNotFound, "resolve exercise", slog.String("exercise_id", exerciseID))
}

// ResolveMeal finds a meal by id.
func (p *Pack) ResolveMeal(mealID string) (Meal, error) {
	for _, meal := range p.manifest.Meals {
		if meal.ID == mealID {
			return meal, nil
		}
	}
	return Meal{}, errors.Wrap(ErrNotFound, "resolve meal", slog.String("meal_id", mealID))
}

// InjuryProtocolFor returns the first injury protocol whose body part matches case-insensitively.
func (p *Pack) InjuryProtocolFor(bodyPart string) (InjuryProtocol, bool) {
	for _, protocol := range p.manifest.Injuries {
		if strings.EqualFold(protocol.BodyPart, bodyPart) {
			return protocol, true
		}
	}
	return InjuryProtocol{}, false
}

// File returns the raw content of a text file in the pack.
func (p *Pack) File(name string) (string, error) {
	content, ok := p.files[cleanPath(name)]
	if !ok {
		return "", errors.Wrap(ErrNotFound, "read pack file", slog.String("path", name))
	}
	return content, nil
}

func cleanPath(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
