// Package telemetry delivers physiological telemetry snapshots to the coach.
package telemetry

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/ptr"
)

// Source produces a complete telemetry snapshot. Every snapshot replaces the previous one.
type Source interface {
	Fetch(ctx context.Context) (progression.Telemetry, error)
}

// Baseline of the simulated source.
const (
	baseSleepHours     = 7.2
	baseSteps          = 8500
	baseHeartRate      = 68
	baseCaloriesBurned = 2200
	baseBodyWeight     = 78
	baseBodyFat        = 18
)

// Maximum daily variation of the simulated source in either direction.
const (
	sleepVariation     = 0.75
	stepsVariation     = 1000
	heartRateVariation = 2.5
	caloriesVariation  = 150
)

// SimulatedSource stands in for a wearable integration. It reports a fixed baseline, optionally with random daily
// variation.
type SimulatedSource struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulatedSource creates a source reporting the baseline. A nil rnd disables the variation.
func NewSimulatedSource(now func() time.Time, rnd *rand.Rand) *SimulatedSource {
	return &SimulatedSource{now: now, mu: sync.Mutex{}, rnd: rnd}
}

func (s *SimulatedSource) Fetch(ctx context.Context) (progression.Telemetry, error) {
	if err := ctx.Err(); err != nil {
		return progression.Telemetry{}, err //nolint:wrapcheck // context errors are returned as is.
	}

	t := progression.Telemetry{
		AvgSleepHours:     baseSleepHours,
		AvgSteps:          baseSteps,
		AvgHeartRate:      baseHeartRate,
		AvgCaloriesBurned: baseCaloriesBurned,
		BodyWeight:        ptr.Ref(float64(baseBodyWeight)),
		BodyFat:           ptr.Ref(float64(baseBodyFat)),
		LastUpdated:       s.now(),
	}
	if s.rnd == nil {
		return t, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t.AvgSleepHours = roundTenth(t.AvgSleepHours + s.spread(sleepVariation))
	t.AvgSteps += s.rnd.IntN(2*stepsVariation+1) - stepsVariation
	t.AvgHeartRate = roundTenth(t.AvgHeartRate + s.spread(heartRateVariation))
	t.AvgCaloriesBurned += s.rnd.IntN(2*caloriesVariation+1) - caloriesVariation
	return t, nil
}

// spread returns a uniformly distributed value in [-limit, limit).
func (s *SimulatedSource) spread(limit float64) float64 {
	return (s.rnd.Float64()*2 - 1) * limit
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10 //nolint:mnd // one decimal.
}
