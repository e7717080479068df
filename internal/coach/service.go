package coach

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/logging"
	"github.com/myrjola/petracoach/internal/progression"
	"golang.org/x/sync/singleflight"
)

// Service owns the coaching sessions of all users.
//
// Events of the same user are processed one at a time and each save completes before the next event of that user is
// accepted. Sessions of different users proceed in parallel.
type Service struct {
	store   progression.Store
	content Content
	machine Machine
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*userSession
	// telemetry is the latest snapshot delivered to all users, nil before the first delivery.
	telemetry *progression.Telemetry
	loads     singleflight.Group
}

type userSession struct {
	mu      sync.Mutex
	session Session
}

func NewService(
	store progression.Store,
	content Content,
	logger *slog.Logger,
	metrics *Metrics,
	now func() time.Time,
) *Service {
	return &Service{
		store:     store,
		content:   content,
		machine:   NewMachine(content, now),
		logger:    logger,
		metrics:   metrics,
		now:       now,
		mu:        sync.Mutex{},
		sessions:  make(map[string]*userSession),
		telemetry: nil,
		loads:     singleflight.Group{},
	}
}

// Content returns the program content the service navigates.
func (s *Service) Content() Content {
	return s.content
}

// Session returns a copy of the user's session, loading or creating the progression on first use.
func (s *Service) Session(ctx context.Context, userID string) (Session, error) {
	us, err := s.userSession(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.session.Clone(), nil
}

// Dispatch feeds event to the user's state machine and executes the resulting effects.
//
// A rejected event returns an error wrapping [ErrRejected] and the unchanged session. When saving fails, the returned
// session is the new state, which is kept in memory, together with the save error.
func (s *Service) Dispatch(ctx context.Context, userID string, event Event) (Session, error) {
	us, err := s.userSession(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	us.mu.Lock()
	defer us.mu.Unlock()

	from := us.session.Screen
	next, effects, err := s.machine.Transition(us.session, event)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			s.metrics.RejectedEvents.WithLabelValues(string(from), event.eventName()).Inc()
		}
		s.logger.LogAttrs(ctx, slog.LevelDebug, "event not accepted",
			slog.String("screen", string(from)), slog.String("event", event.eventName()), errors.SlogError(err))
		return us.session.Clone(), err
	}

	us.session = next
	s.metrics.Transitions.WithLabelValues(string(from), string(next.Screen)).Inc()
	s.logger.LogAttrs(ctx, slog.LevelDebug, "transition",
		slog.String("event", event.eventName()),
		slog.String("from", string(from)),
		slog.String("to", string(next.Screen)),
		slog.String("phase_id", next.Progression.CurrentPhaseID),
		slog.Int("day", next.Progression.CurrentDay))

	var errs []error
	for _, effect := range effects {
		if err = s.execute(ctx, us, effect); err != nil {
			errs = append(errs, err)
		}
	}
	return us.session.Clone(), errors.Join(errs...)
}

// execute runs a single effect. The caller holds us.mu.
func (s *Service) execute(ctx context.Context, us *userSession, effect Effect) error {
	switch e := effect.(type) {
	case SaveProgression:
		return s.save(ctx, us)
	case ContentInconsistency:
		s.metrics.ContentInconsistency.Inc()
		s.logger.LogAttrs(ctx, slog.LevelWarn, "program content could not be resolved",
			slog.String("phase_id", e.PhaseID),
			slog.Int("day", e.Day),
			slog.String("workout_id", e.WorkoutID),
			errors.SlogError(e.Err))
	case Adapted:
		for _, proposal := range e.Proposals {
			s.metrics.AdaptationProposals.WithLabelValues(string(proposal.Rule)).Inc()
			s.logger.LogAttrs(ctx, slog.LevelInfo, "adapted program",
				slog.String("rule", string(proposal.Rule)),
				slog.String("reason", proposal.Reason(i18n.English)))
		}
	}
	return nil
}

// save persists the progression of us. The caller holds us.mu so that there is at most one save in flight per user.
func (s *Service) save(ctx context.Context, us *userSession) error {
	us.session.Progression.UpdatedAt = s.now()
	if err := s.store.Save(ctx, us.session.Progression.Clone()); err != nil {
		s.metrics.StoreFailures.WithLabelValues("save").Inc()
		s.logger.LogAttrs(ctx, slog.LevelError, "save progression", errors.SlogError(err))
		return errors.Wrap(err, "save progression")
	}
	return nil
}

// UpdateTelemetry replaces the telemetry snapshot of a user and saves the progression.
func (s *Service) UpdateTelemetry(ctx context.Context, userID string, t progression.Telemetry) (Session, error) {
	us, err := s.userSession(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	us.session.Progression.Telemetry = t.Clone()
	err = s.save(ctx, us)
	return us.session.Clone(), err
}

// UpdateTelemetryAll replaces the telemetry snapshot of every session held in memory. Sessions loaded later start
// with this snapshot unless their stored one is newer.
func (s *Service) UpdateTelemetryAll(ctx context.Context, t progression.Telemetry) error {
	s.mu.Lock()
	latest := t.Clone()
	s.telemetry = &latest
	sessions := make([]*userSession, 0, len(s.sessions))
	for _, us := range s.sessions {
		sessions = append(sessions, us)
	}
	s.mu.Unlock()

	var errs []error
	for _, us := range sessions {
		us.mu.Lock()
		us.session.Progression.Telemetry = t.Clone()
		errs = append(errs, s.save(ctx, us))
		us.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Prescribe renders the plan of the user's current day.
func (s *Service) Prescribe(ctx context.Context, userID string, lang i18n.Language) (DayPlan, error) {
	session, err := s.Session(ctx, userID)
	if err != nil {
		return DayPlan{}, err
	}
	return Prescribe(s.content, session, lang)
}

// Overview summarizes the user's progress.
func (s *Service) Overview(ctx context.Context, userID string, lang i18n.Language) (Overview, error) {
	session, err := s.Session(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(s.content, session, lang)
}

// userSession returns the in-memory session of userID. Concurrent first requests of the same user share one load.
func (s *Service) userSession(ctx context.Context, userID string) (*userSession, error) {
	s.mu.Lock()
	us, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok {
		return us, nil
	}

	v, err, _ := s.loads.Do(userID, func() (any, error) {
		// A previous flight may have finished since the lookup above.
		s.mu.Lock()
		existing, ok := s.sessions[userID]
		s.mu.Unlock()
		if ok {
			return existing, nil
		}

		// The load is shared with other requests so it must not be cancelled with the first one.
		p, err := s.loadOrCreate(context.WithoutCancel(ctx), userID)
		if err != nil {
			return nil, err
		}
		if latest := s.latestTelemetry(); latest != nil && latest.LastUpdated.After(p.Telemetry.LastUpdated) {
			p.Telemetry = *latest
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		loaded := &userSession{mu: sync.Mutex{}, session: s.machine.Resume(p)}
		s.sessions[userID] = loaded
		s.metrics.ActiveSessions.Inc()
		return loaded, nil
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped in loadOrCreate.
	}
	return v.(*userSession), nil //nolint:forcetypeassert // always *userSession.
}

func (s *Service) loadOrCreate(ctx context.Context, userID string) (progression.Progression, error) {
	ctx = logging.WithAttrs(ctx, slog.String("user_id", userID))

	p, err := s.store.Load(ctx, userID)
	switch {
	case errors.Is(err, progression.ErrNotFound):
		first, err := s.content.FirstPhase()
		if err != nil {
			return progression.Progression{}, errors.Wrap(err, "start program")
		}
		p = progression.New(userID, s.content.ProgramID(), first.ID, s.now())
		if latest := s.latestTelemetry(); latest != nil {
			p.Telemetry = *latest
		}
		if err = s.store.Save(ctx, p.Clone()); err != nil {
			s.metrics.StoreFailures.WithLabelValues("save").Inc()
			return progression.Progression{}, errors.Wrap(err, "save new progression")
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "created progression", slog.String("phase_id", first.ID))
		return p, nil
	case err != nil:
		s.metrics.StoreFailures.WithLabelValues("load").Inc()
		return progression.Progression{}, errors.Wrap(err, "load progression")
	}

	if _, err = s.content.ResolvePhase(p.PackID, p.CurrentPhaseID); err != nil {
		// The pack changed since the progression was saved. History and adaptations are kept.
		first, firstErr := s.content.FirstPhase()
		if firstErr != nil {
			return progression.Progression{}, errors.Wrap(firstErr, "restart program")
		}
		s.logger.LogAttrs(ctx, slog.LevelWarn, "stored phase not in program, restarting from first phase",
			slog.String("pack_id", p.PackID),
			slog.String("phase_id", p.CurrentPhaseID),
			errors.SlogError(err))
		p.PackID = s.content.ProgramID()
		p.CurrentPhaseID = first.ID
		p.CurrentDay = 1
		p.UpdatedAt = s.now()
		if err = s.store.Save(ctx, p.Clone()); err != nil {
			s.metrics.StoreFailures.WithLabelValues("save").Inc()
			return progression.Progression{}, errors.Wrap(err, "save restarted progression")
		}
	}
	return p, nil
}

func (s *Service) latestTelemetry() *progression.Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.telemetry == nil {
		return nil
	}
	latest := s.telemetry.Clone()
	return &latest
}
