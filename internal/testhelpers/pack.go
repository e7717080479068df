package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/myrjola/petracoach/internal/program"
)

// PackFS is a small two-phase program pack used across the test suites.
//
// Phase foundation lasts one week with workouts pinned to Monday, Wednesday and Friday. Phase build lasts two weeks
// with a single flexible workout. The knee protocol restricts the squat sq1 in favour of lunge2.
func PackFS() fstest.MapFS {
	return fstest.MapFS{
		"manifest.json":                {Data: []byte(manifestJSON)},
		"workouts/full-body-a.json":    {Data: []byte(fullBodyAJSON)},
		"workouts/full-body-b.json":    {Data: []byte(fullBodyBJSON)},
		"workouts/conditioning.json":   {Data: []byte(conditioningJSON)},
		"recovery/foundation.md":       {Data: []byte("---\ntitle: Recovery\n---\n# Rest well\n\nSleep at least *eight* hours.\n")},
		"phases/foundation.md":         {Data: []byte("# Foundation\n")},
		"covers/foundation.jpg":        {Data: []byte{0xff, 0xd8, 0xff}},
		"workouts/broken-workout.json": {Data: []byte("{not json")},
	}
}

// PackFiles returns the text files of [PackFS] for building packs with a modified manifest using [program.New].
func PackFiles() map[string]string {
	files := make(map[string]string)
	for name, file := range PackFS() {
		files[name] = string(file.Data)
	}
	return files
}

// NewPack loads [PackFS].
func NewPack(t *testing.T) *program.Pack {
	t.Helper()
	pack, err := program.LoadFS(PackFS())
	if err != nil {
		t.Fatalf("load test pack: %v", err)
	}
	return pack
}

// WritePack writes [PackFS] to a temporary directory and returns its path.
func WritePack(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, file := range PackFS() {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("create pack directory: %v", err)
		}
		if err := os.WriteFile(path, file.Data, 0o600); err != nil {
			t.Fatalf("write pack file: %v", err)
		}
	}
	return dir
}

const manifestJSON = `{
  "version": 1,
  "languages": ["pl", "en"],
  "levels": [1, 2],
  "program": {
    "id": "strength-101",
    "title": {"pl": "Siła 101", "en": "Strength 101"},
    "description": {"pl": "Program siłowy", "en": "Strength program"},
    "goal": "strength",
    "phases": [
      {
        "id": "foundation",
        "name": {"pl": "Fundament", "en": "Foundation"},
        "order": 1,
        "durationWeeks": 1,
        "description": {"pl": "Technika", "en": "Technique"},
        "workoutSchedule": {
          "daysPerWeek": 3,
          "workouts": [
            {"id": "full-body-a", "dayOfWeek": 1, "type": "strength"},
            {"id": "full-body-b", "dayOfWeek": 3, "type": "strength"},
            {"id": "conditioning", "dayOfWeek": 5, "type": "cardio"}
          ]
        },
        "nutritionGuidelines": {
          "caloriesTarget": 2400, "proteinGrams": 160, "carbsGrams": 250, "fatGrams": 80, "mealsPerDay": 4,
          "mealIds": ["oats"]
        },
        "recoveryProtocol": "recovery/foundation.md"
      },
      {
        "id": "build",
        "name": {"pl": "Budowa", "en": "Build"},
        "order": 2,
        "durationWeeks": 2,
        "description": {"pl": "Objętość", "en": "Volume"},
        "workoutSchedule": {
          "daysPerWeek": 7,
          "workouts": [{"id": "full-body-a", "type": "strength"}]
        },
        "nutritionGuidelines": {
          "caloriesTarget": 2600, "proteinGrams": 170, "carbsGrams": 280, "fatGrams": 85, "mealsPerDay": 4
        }
      }
    ]
  },
  "exercises": [
    {"id": "sq1", "name": {"pl": "Przysiad", "en": "Squat"}, "description": {"en": "Back squat"},
     "equipment": ["barbell"], "muscleGroups": ["quads"], "difficulty": 2,
     "formCues": {"pl": ["Plecy proste"], "en": ["Brace"]}, "alternatives": ["lunge2"]},
    {"id": "lunge2", "name": {"pl": "Wykrok", "en": "Lunge"}, "equipment": [], "muscleGroups": ["quads"],
     "difficulty": 1, "formCues": {"en": ["Knee over toes"]}},
    {"id": "bp1", "name": {"pl": "Wyciskanie", "en": "Bench press"}, "equipment": ["barbell"],
     "muscleGroups": ["chest"], "difficulty": 2, "formCues": {}},
    {"id": "row1", "name": {"pl": "Wiosłowanie", "en": "Row"}, "equipment": ["dumbbell"],
     "muscleGroups": ["back"], "difficulty": 1, "formCues": {}},
    {"id": "bike", "name": {"pl": "Rower", "en": "Bike"}, "equipment": ["bike"],
     "muscleGroups": ["legs"], "difficulty": 1, "formCues": {}}
  ],
  "meals": [
    {"id": "oats", "name": {"pl": "Owsianka", "en": "Oatmeal"}, "type": "breakfast", "calories": 450,
     "protein": 20, "carbs": 60, "fat": 12, "ingredients": [{"name": {"en": "Oats"}, "amount": "80 g",
     "calories": 300, "protein": 10, "carbs": 54, "fat": 6}]}
  ],
  "injuries": [
    {"id": "knee-pain", "name": {"pl": "Ból kolana", "en": "Knee pain"}, "bodyPart": "Knee", "severity": "moderate",
     "restrictedExercises": ["sq1"], "recommendedExercises": ["lunge2", "bike"]},
    {"id": "shoulder-pain", "name": {"en": "Shoulder pain"}, "bodyPart": "shoulder", "severity": "moderate",
     "restrictedExercises": ["bp1"], "recommendedExercises": []}
  ]
}`

const fullBodyAJSON = `{
  "id": "full-body-a",
  "name": {"pl": "Całe ciało A", "en": "Full body A"},
  "type": "strength",
  "durationMinutes": 60,
  "exerciseBlocks": [
    {"exercises": ["sq1", "bp1"], "sets": 3, "reps": 10, "restSeconds": 90},
    {"exercises": ["row1"], "sets": 3, "reps": "8-12", "restSeconds": 60}
  ]
}`

const fullBodyBJSON = `{
  "id": "full-body-b",
  "name": {"pl": "Całe ciało B", "en": "Full body B"},
  "type": "strength",
  "durationMinutes": 50,
  "exerciseBlocks": [
    {"exercises": ["lunge2"], "sets": 4, "reps": 12, "restSeconds": 60}
  ]
}`

const conditioningJSON = `{
  "id": "conditioning",
  "name": {"pl": "Kondycja", "en": "Conditioning"},
  "type": "cardio",
  "durationMinutes": 30,
  "exerciseBlocks": [
    {"exercises": ["bike"], "sets": 1, "reps": "20 min", "restSeconds": 0}
  ]
}`
