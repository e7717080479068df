package telemetry_test

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
	"github.com/myrjola/petracoach/internal/telemetry"
	"github.com/myrjola/petracoach/internal/testhelpers"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func TestSimulatedSource_Baseline(t *testing.T) {
	got, err := telemetry.NewSimulatedSource(fixedNow, nil).Fetch(t.Context())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := progression.Telemetry{
		AvgSleepHours:     7.2,
		AvgSteps:          8500,
		AvgHeartRate:      68,
		AvgCaloriesBurned: 2200,
		BodyWeight:        ptr.Ref(78.0),
		BodyFat:           ptr.Ref(18.0),
		LastUpdated:       testNow,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("baseline mismatch (-want +got):\n%s", diff)
	}
}

func TestSimulatedSource_Variation(t *testing.T) {
	source := telemetry.NewSimulatedSource(fixedNow, rand.New(rand.NewPCG(1, 2))) //nolint:gosec // test data.
	for range 200 {
		got, err := source.Fetch(t.Context())
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if got.AvgSleepHours < 6.4 || got.AvgSleepHours > 8 {
			t.Errorf("sleep %v outside 7.2±0.75", got.AvgSleepHours)
		}
		if got.AvgSteps < 7500 || got.AvgSteps > 9500 {
			t.Errorf("steps %d outside 8500±1000", got.AvgSteps)
		}
		if got.AvgHeartRate < 65.5 || got.AvgHeartRate > 70.5 {
			t.Errorf("heart rate %v outside 68±2.5", got.AvgHeartRate)
		}
		if got.AvgCaloriesBurned < 2050 || got.AvgCaloriesBurned > 2350 {
			t.Errorf("calories %d outside 2200±150", got.AvgCaloriesBurned)
		}
	}
}

func TestSimulatedSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := telemetry.NewSimulatedSource(fixedNow, nil).Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
}

type flakySource struct {
	mu    sync.Mutex
	calls int
}

func (s *flakySource) Fetch(context.Context) (progression.Telemetry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls%2 == 0 {
		return progression.Telemetry{}, errors.New("wearable offline")
	}
	return progression.DefaultTelemetry(testNow), nil
}

func TestPoller(t *testing.T) {
	delivered := make(chan progression.Telemetry, 16)
	sink := func(_ context.Context, snapshot progression.Telemetry) error {
		delivered <- snapshot
		return nil
	}
	poller, err := telemetry.NewPoller(&flakySource{}, sink, "@every 1s", testhelpers.NewTestLogger(t))
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	if err = poller.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The first fetch happens immediately, the second one fails and the third one is delivered on a later tick.
	for i := range 2 {
		select {
		case got := <-delivered:
			if diff := cmp.Diff(progression.DefaultTelemetry(testNow), got); diff != "" {
				t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("delivery %d timed out", i+1)
		}
	}
	poller.Stop()
}

func TestPoller_StopWithoutTicks(t *testing.T) {
	sink := func(context.Context, progression.Telemetry) error { return nil }
	poller, err := telemetry.NewPoller(telemetry.NewSimulatedSource(fixedNow, nil), sink, "@every 1h",
		testhelpers.NewTestLogger(t))
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	if err = poller.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	poller.Stop()
}

func TestNewPoller_InvalidSpec(t *testing.T) {
	sink := func(context.Context, progression.Telemetry) error { return nil }
	if _, err := telemetry.NewPoller(&flakySource{}, sink, "every hour", testhelpers.NewTestLogger(t)); err == nil {
		t.Error("want error for invalid schedule")
	}
}
