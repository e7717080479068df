package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/petracoach/internal/e2etest"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/logging"
	"github.com/myrjola/petracoach/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	scenarioTimeout         = 2 * time.Minute
	maxConcurrentOperations = 20
	defaultUsers            = 10
	// trainingDays is how many program days every virtual user walks through.
	trainingDays         = 28
	maxSetsPerExercise   = 4
	baseWeight           = 20.0
	weightRange          = 40
	successRateThreshold = 95.0
	percentageMultiplier = 100
)

type coachView struct {
	Screen string `json:"screen"`
	Plan   *struct {
		Blocks []struct {
			Exercises []struct {
				ExerciseID string   `json:"exerciseId"`
				Sets       int      `json:"sets"`
				Weight     *float64 `json:"weight"`
			} `json:"exercises"`
		} `json:"blocks"`
	} `json:"plan"`
}

type completedSet struct {
	Reps      int      `json:"reps"`
	Weight    *float64 `json:"weight,omitempty"`
	Completed bool     `json:"completed"`
}

type completedExercise struct {
	ExerciseID string         `json:"exerciseId"`
	Sets       []completedSet `json:"sets"`
}

// virtualUser drives one anonymous coaching session through the API.
type virtualUser struct {
	index  int
	client *e2etest.Client
	rnd    *rand.Rand
	logger *slog.Logger
}

func (u *virtualUser) post(ctx context.Context, path string, body any) (coachView, error) {
	var view coachView
	status, err := u.client.PostJSON(ctx, path, body, &view)
	if err != nil {
		return view, fmt.Errorf("post %s: %w", path, err)
	}
	if status != http.StatusOK {
		return view, errors.New("unexpected status", slog.String("path", path), slog.Int("status", status))
	}
	return view, nil
}

// loggedExercises turns the plan of the day into completed exercises with some variation in reps and weight.
func (u *virtualUser) loggedExercises(view coachView) []completedExercise {
	exercises := []completedExercise{}
	if view.Plan == nil {
		return exercises
	}
	for _, block := range view.Plan.Blocks {
		for _, planned := range block.Exercises {
			e := completedExercise{ExerciseID: planned.ExerciseID, Sets: nil}
			for range min(max(planned.Sets, 1), maxSetsPerExercise) {
				weight := baseWeight + float64(u.rnd.IntN(weightRange))
				if planned.Weight != nil {
					weight = *planned.Weight
				}
				e.Sets = append(e.Sets, completedSet{Reps: 6 + u.rnd.IntN(6), Weight: &weight, Completed: true}) //nolint:mnd // 6 to 11 reps.
			}
			exercises = append(exercises, e)
		}
	}
	return exercises
}

// trainDay completes the current day: a workout with feedback or a rest day.
func (u *virtualUser) trainDay(ctx context.Context, view coachView) (coachView, error) {
	var err error
	switch view.Screen {
	case "phase_intro", "rest_day", "phase_complete", "progression":
		return u.post(ctx, "/api/coach/advance", nil)
	case "day_prep":
		if view, err = u.post(ctx, "/api/coach/advance", nil); err != nil || view.Screen != "workout" {
			return view, err
		}
		fallthrough
	case "workout":
		if _, err = u.post(ctx, "/api/coach/workout/complete",
			map[string]any{"exercises": u.loggedExercises(view)}); err != nil {
			return view, err
		}
		fallthrough
	case "feedback":
		if _, err = u.post(ctx, "/api/coach/feedback/rpe", map[string]int{"value": 1 + u.rnd.IntN(5)}); err != nil { //nolint:mnd // 1 to 5.
			return view, err
		}
		if _, err = u.post(ctx, "/api/coach/feedback/confidence", map[string]int{"value": 1 + u.rnd.IntN(5)}); err != nil { //nolint:mnd // 1 to 5.
			return view, err
		}
		if u.rnd.IntN(10) == 0 { //nolint:mnd // one workout in ten hurts.
			if _, err = u.post(ctx, "/api/coach/feedback/pain",
				map[string]any{"bodyPart": "knee", "severity": 1 + u.rnd.IntN(5)}); err != nil { //nolint:mnd // 1 to 5.
				return view, err
			}
		}
		if _, err = u.post(ctx, "/api/coach/advance", nil); err != nil {
			return view, err
		}
		fallthrough
	case "recovery":
		return u.post(ctx, "/api/coach/advance", nil)
	default:
		return view, errors.New("unknown screen", slog.String("screen", view.Screen))
	}
}

// scenario walks the user through trainingDays program days.
func (u *virtualUser) scenario(ctx context.Context) error {
	var view coachView
	status, err := u.client.GetJSON(ctx, "/api/coach", &view)
	if err != nil {
		return fmt.Errorf("get coach: %w", err)
	}
	if status != http.StatusOK {
		return errors.New("unexpected coach status", slog.Int("status", status))
	}
	for day := 0; day < trainingDays; {
		before := view.Screen
		if view, err = u.trainDay(ctx, view); err != nil {
			return errors.Wrap(err, "train day", slog.Int("day", day), slog.String("screen", before))
		}
		if view.Screen == "day_prep" || view.Screen == "rest_day" {
			day++
		}
	}
	u.logger.LogAttrs(ctx, slog.LevelDebug, "scenario completed", slog.Int("user_index", u.index))
	return nil
}

// runLoadTest runs the scenario of every user concurrently and fails below the success rate threshold.
func runLoadTest(ctx context.Context, users []*virtualUser, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", len(users)))

	var successCount, failureCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)
	for _, user := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()
			if err := user.scenario(scenarioCtx); err != nil {
				failureCount.Add(1)
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("user_index", user.index), errors.SlogError(err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(len(users)) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))
	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) < 2 || len(os.Args) > 3 { //nolint:mnd // hostname and optional user count.
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname> [users]")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		numUsers = defaultUsers
		start    = time.Now()
		err      error
	)
	if len(os.Args) == 3 { //nolint:mnd // user count given.
		if numUsers, err = strconv.Atoi(os.Args[2]); err != nil || numUsers < 1 {
			logger.LogAttrs(ctx, slog.LevelError, "users must be a positive number", slog.String("users", os.Args[2]))
			os.Exit(1)
		}
	}
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	users := make([]*virtualUser, 0, numUsers)
	for i := range numUsers {
		client, clientErr := e2etest.NewClient(url)
		if clientErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(clientErr))
			os.Exit(1)
		}
		users = append(users, &virtualUser{
			index:  i,
			client: client,
			rnd:    rand.New(rand.NewPCG(uint64(i), uint64(start.UnixNano()))), //nolint:gosec // load data.
			logger: logger,
		})
	}

	if err = users[0].client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err = runLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Int("users_tested", len(users)))
}
