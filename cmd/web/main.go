package main

import (
	"context"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/petracoach/internal/coach"
	"github.com/myrjola/petracoach/internal/envstruct"
	"github.com/myrjola/petracoach/internal/flightrecorder"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/logging"
	"github.com/myrjola/petracoach/internal/postgres"
	"github.com/myrjola/petracoach/internal/program"
	"github.com/myrjola/petracoach/internal/progression"
	"github.com/myrjola/petracoach/internal/sqlite"
	"github.com/myrjola/petracoach/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// userExporter exports the data of a single user into a file in dir and returns its path.
type userExporter interface {
	ExportUser(ctx context.Context, userID string, dir string) (string, error)
}

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	coach          *coach.Service
	pack           *program.Pack
	// exporter is nil when the store can't produce a database export.
	exporter userExporter
	// recorder is nil when trace capture is disabled.
	recorder *flightrecorder.Recorder

	registry    *prometheus.Registry
	metrics     *httpMetrics
	corsOrigins []string
	language    i18n.Language
	now         func() time.Time
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"PETRACOACH_ADDR" envDefault:"localhost:8081"`
	// Store selects the progression store, either sqlite or postgres.
	Store string `env:"PETRACOACH_STORE" envDefault:"sqlite"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"PETRACOACH_SQLITE_URL" envDefault:"./petracoach.sqlite3"`
	// PostgresURL is the connection URL used when Store is postgres.
	PostgresURL string `env:"PETRACOACH_POSTGRES_URL" envDefault:""`
	// PackPath is a program pack directory or zip archive.
	PackPath string `env:"PETRACOACH_PACK_PATH" envDefault:"./pack"`
	// Language is used when the request doesn't ask for a supported language.
	Language string `env:"PETRACOACH_LANGUAGE" envDefault:"pl"`
	// TelemetrySchedule is a cron spec.
	TelemetrySchedule  string `env:"PETRACOACH_TELEMETRY_SCHEDULE" envDefault:"@every 1h"`
	TelemetryVariation bool   `env:"PETRACOACH_TELEMETRY_VARIATION" envDefault:"false"`
	// CORSOrigins is a comma separated list of front-end origins allowed to call the API.
	CORSOrigins     string        `env:"PETRACOACH_CORS_ORIGINS" envDefault:""`
	SessionLifetime time.Duration `env:"PETRACOACH_SESSION_LIFETIME" envDefault:"720h"`
	// TracesDirectory receives runtime traces of timed out and panicking requests. Empty disables trace capture.
	TracesDirectory string `env:"PETRACOACH_TRACES_DIRECTORY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	pack, err := program.Load(cfg.PackPath)
	if err != nil {
		return errors.Wrap(err, "load program pack", slog.String("path", cfg.PackPath))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "loaded program pack",
		slog.String("program_id", pack.ProgramID()), slog.Int("phases", len(pack.Phases())))

	sessionManager := initializeSessionManager(cfg.SessionLifetime)
	var (
		store    progression.Store
		exporter userExporter
	)
	switch cfg.Store {
	case "sqlite":
		var db *sqlite.Database
		if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
			return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
			}
		}()
		store = progression.NewSQLiteStore(db, logger)
		exporter = db
		sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite, 24*time.Hour) //nolint:mnd // day
	case "postgres":
		pool, connectErr := postgres.Connect(ctx, cfg.PostgresURL, logger)
		if connectErr != nil {
			return errors.Wrap(connectErr, "connect postgres")
		}
		defer pool.Close()
		// Sessions stay in the default in-memory store. A restart only loses the anonymous identity.
		store = progression.NewPostgresStore(pool)
	default:
		return errors.New("unknown store", slog.String("store", cfg.Store))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to store", slog.String("store", cfg.Store))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct // defaults.
	)
	coachService := coach.NewService(store, pack, logger, coach.NewMetrics(registry), time.Now)

	var rnd *rand.Rand
	if cfg.TelemetryVariation {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // simulated data.
	}
	poller, err := telemetry.NewPoller(telemetry.NewSimulatedSource(time.Now, rnd), coachService.UpdateTelemetryAll,
		cfg.TelemetrySchedule, logger)
	if err != nil {
		return errors.Wrap(err, "new telemetry poller")
	}
	if err = poller.Start(ctx); err != nil {
		return errors.Wrap(err, "start telemetry poller")
	}
	defer poller.Stop()

	var recorder *flightrecorder.Recorder
	if cfg.TracesDirectory != "" {
		if recorder, err = flightrecorder.New(logger, flightrecorder.Config{ //nolint:exhaustruct // defaults.
			Directory: cfg.TracesDirectory,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(context.WithoutCancel(ctx))
	}

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		coach:          coachService,
		pack:           pack,
		exporter:       exporter,
		recorder:       recorder,
		registry:       registry,
		metrics:        newHTTPMetrics(registry),
		corsOrigins:    splitList(cfg.CORSOrigins),
		language:       i18n.Parse(cfg.Language),
		now:            time.Now,
	}

	handler, err := app.routes()
	if err != nil {
		return errors.Wrap(err, "routes")
	}
	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func initializeSessionManager(lifetime time.Duration) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Lifetime = lifetime
	sessionManager.Cookie.Name = "petracoach_session"
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	return sessionManager
}

func splitList(s string) []string {
	var items []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// loadDotenv loads environment variables from the optional .env file. Variables already set take precedence.
func loadDotenv() error {
	path, ok := os.LookupEnv("PETRACOACH_DOTENV")
	if !ok {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "load dotenv", slog.String("path", path))
	}
	return nil
}

func main() {
	ctx := context.Background()
	dotenvErr := loadDotenv()

	output := logging.Output(os.Getenv("PETRACOACH_LOG_FILE"))
	logger := logging.NewLogger(output, slog.LevelDebug)
	exitCode := 0
	if dotenvErr != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading environment", errors.SlogError(dotenvErr))
		exitCode = 1
	} else if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		exitCode = 1
	}
	_ = output.Close()
	os.Exit(exitCode)
}
