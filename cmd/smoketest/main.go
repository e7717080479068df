package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/petracoach/internal/e2etest"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/logging"
	"github.com/myrjola/petracoach/internal/testhelpers"
)

type coachView struct {
	Screen      string `json:"screen"`
	Progression struct {
		CurrentPhaseID string `json:"currentPhaseId"`
		CurrentDay     int    `json:"currentDay"`
	} `json:"progression"`
}

// smokeCoach starts an anonymous session and moves past the phase intro. It never records a workout so that the
// smoke test leaves no training history behind.
func smokeCoach(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	var view coachView
	status, err := client.GetJSON(ctx, "/api/coach", &view)
	if err != nil {
		return fmt.Errorf("get coach: %w", err)
	}
	if status != http.StatusOK {
		return errors.New("unexpected coach status", slog.Int("status", status))
	}
	if view.Screen != "phase_intro" || view.Progression.CurrentPhaseID == "" {
		return errors.New("unexpected initial screen",
			slog.String("screen", view.Screen), slog.String("phase_id", view.Progression.CurrentPhaseID))
	}

	if status, err = client.PostJSON(ctx, "/api/coach/advance", nil, &view); err != nil {
		return fmt.Errorf("advance: %w", err)
	}
	if status != http.StatusOK || (view.Screen != "day_prep" && view.Screen != "rest_day") {
		return errors.New("unexpected screen after phase intro",
			slog.Int("status", status), slog.String("screen", view.Screen))
	}

	var overview struct {
		ProgramID string `json:"programId"`
	}
	if status, err = client.GetJSON(ctx, "/api/coach/overview", &overview); err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if status != http.StatusOK || overview.ProgramID == "" {
		return errors.New("unexpected overview", slog.Int("status", status))
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err = smokeCoach(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing coach", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
