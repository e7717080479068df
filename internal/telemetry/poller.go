package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/robfig/cron"
)

const fetchTimeout = 30 * time.Second

// Sink receives every fetched snapshot.
type Sink func(ctx context.Context, t progression.Telemetry) error

// Poller fetches telemetry on a cron schedule and forwards it to a sink.
type Poller struct {
	source Source
	sink   Sink
	spec   string
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context //nolint:containedctx // cancels in-flight fetches on Stop.
	cancel  context.CancelFunc
}

// NewPoller creates a poller running on spec, e.g. "@every 1h" or "0 0 6 * * *".
func NewPoller(source Source, sink Sink, spec string, logger *slog.Logger) (*Poller, error) {
	if _, err := cron.Parse(spec); err != nil {
		return nil, errors.Wrap(err, "parse telemetry schedule", slog.String("spec", spec))
	}
	c := cron.New()
	c.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelError)
	return &Poller{ //nolint:exhaustruct // ctx and cancel are set on Start.
		source: source,
		sink:   sink,
		spec:   spec,
		logger: logger,
		cron:   c,
	}, nil
}

// Start fetches a snapshot right away and then on every tick of the schedule.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	if err := p.cron.AddFunc(p.spec, p.poll); err != nil {
		p.cancel()
		return errors.Wrap(err, "schedule telemetry poll")
	}

	p.mu.Lock()
	p.wg.Add(1)
	p.mu.Unlock()
	go func() {
		defer p.wg.Done()
		p.fetch()
	}()

	p.cron.Start()
	p.logger.LogAttrs(ctx, slog.LevelInfo, "telemetry poller started", slog.String("spec", p.spec))
	return nil
}

// Stop stops the schedule and waits for in-flight fetches.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.cron.Stop()
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Poller) poll() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()
	p.fetch()
}

func (p *Poller) fetch() {
	ctx, cancel := context.WithTimeout(p.ctx, fetchTimeout)
	defer cancel()

	t, err := p.source.Fetch(ctx)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "fetch telemetry", errors.SlogError(err))
		return
	}
	if err = p.sink(ctx, t); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelError, "deliver telemetry", errors.SlogError(err))
		return
	}
	p.logger.LogAttrs(ctx, slog.LevelDebug, "delivered telemetry",
		slog.Float64("avg_sleep_hours", t.AvgSleepHours),
		slog.Int("avg_steps", t.AvgSteps))
}
