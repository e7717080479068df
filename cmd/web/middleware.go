package main

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/petracoach/internal/contexthelpers"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/cors"
)

const userIDSessionKey = "user_id"

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		headerWritten:  false,
	}
}

func (mw *statusResponseWriter) WriteHeader(statusCode int) {
	mw.ResponseWriter.WriteHeader(statusCode)

	if !mw.headerWritten {
		mw.statusCode = statusCode
		mw.headerWritten = true
	}
}

func (mw *statusResponseWriter) Write(b []byte) (int, error) {
	mw.headerWritten = true
	written, err := mw.ResponseWriter.Write(b)
	if err != nil {
		return written, fmt.Errorf("write response: %w", err)
	}
	return written, nil
}

func (mw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The API only serves JSON, nothing it returns should ever be rendered or framed.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")

		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func (app *application) logAndTraceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		ctx := r.Context()
		traceID := rand.Text()
		ctx = logging.WithAttrs(
			ctx,
			slog.Any("trace_id", traceID),
			slog.String("proto", proto),
			slog.String("method", method),
			slog.String("uri", uri),
		)
		r = r.WithContext(ctx)

		start := time.Now()
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request")

		sw := newStatusResponseWriter(w)

		if !trace.IsEnabled() {
			next.ServeHTTP(sw, r)
		} else {
			path := r.URL.Path
			taskName := fmt.Sprintf("HTTP %s %s", r.Method, path)
			traceCtx, task := trace.NewTask(ctx, taskName)

			trace.Log(traceCtx, "request", fmt.Sprintf("method=%s path=%s proto=%s", method, path, proto))
			trace.Log(traceCtx, "trace_id", traceID)

			defer func() {
				trace.Log(traceCtx, "response", fmt.Sprintf("status=%d duration=%v", sw.statusCode, time.Since(start)))
				task.End()
			}()

			r = r.WithContext(traceCtx)
			next.ServeHTTP(sw, r)
		}

		level := slog.LevelInfo
		if sw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		app.logger.LogAttrs(r.Context(), level, "request completed",
			slog.Int("status_code", sw.statusCode), slog.Duration("duration", time.Since(start)))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if excp := recover(); excp != nil {
				if excp == http.ErrAbortHandler { //nolint:errorlint,err113 // sentinel panic value.
					panic(excp)
				}
				app.metrics.panics.Inc()
				app.captureTrace(r, "panic")
				app.serverError(w, r, errors.DecoratePanic(excp))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// identify makes sure every request acts for a user. New visitors get an anonymous user id stored in their session.
func (app *application) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := app.sessionManager.GetString(ctx, userIDSessionKey)
		if userID == "" {
			if err := app.sessionManager.RenewToken(ctx); err != nil {
				app.serverError(w, r, errors.Wrap(err, "renew session token"))
				return
			}
			userID = uuid.NewString()
			app.sessionManager.Put(ctx, userIDSessionKey, userID)
			app.logger.LogAttrs(ctx, slog.LevelInfo, "new anonymous user", slog.String("user_id", userID))
		}
		r = contexthelpers.SetUserID(r, userID)
		r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("user_id", userID)))
		next.ServeHTTP(w, r)
	})
}

// commonContext stores the request path and the negotiated language in the context.
//
// The lang query parameter wins over the Accept-Language header, which wins over the configured language.
func (app *application) commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCurrentPath(r, r.URL.Path)
		lang := app.language
		if matched, ok := i18n.Match(r.URL.Query().Get("lang")); ok {
			lang = matched
		} else if matched, ok = i18n.Match(r.Header.Get("Accept-Language")); ok {
			lang = matched
		}
		r = contexthelpers.SetLanguage(r, lang)
		next.ServeHTTP(w, r)
	})
}

// crossOriginProtection rejects cross-origin state changing requests except from the configured front-end origins.
func (app *application) crossOriginProtection() (*http.CrossOriginProtection, error) {
	protection := http.NewCrossOriginProtection()
	for _, origin := range app.corsOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, errors.Wrap(err, "trust origin", slog.String("origin", origin))
		}
	}
	return protection, nil
}

// cors answers preflight requests and adds CORS headers for the configured front-end origins.
func (app *application) cors(next http.Handler) http.Handler {
	if len(app.corsOrigins) == 0 {
		return next
	}
	return cors.New(cors.Options{ //nolint:exhaustruct // defaults are fine for the rest.
		AllowedOrigins:   app.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "Accept-Language"},
		AllowCredentials: true,
		MaxAge:           3600, //nolint:mnd // an hour.
	}).Handler(next)
}

// timeout times out the request and cancels the context using http.TimeoutHandler. Timed out requests capture a
// trace when the flight recorder is enabled.
func (app *application) timeout(next http.Handler) http.Handler {
	timeout := defaultTimeout - (200 * time.Millisecond) //nolint:mnd // writing the response takes time.
	handler := http.TimeoutHandler(next, timeout, `{"error":"timed out"}`)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := newStatusResponseWriter(w)
		handler.ServeHTTP(sw, r)
		if sw.statusCode == http.StatusServiceUnavailable {
			app.captureTrace(r, "timeout")
		}
	})
}

func (app *application) captureTrace(r *http.Request, reason string) {
	if app.recorder != nil {
		app.recorder.Capture(r.Context(), reason)
	}
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	panics   prometheus.Counter
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	const namespace, subsystem = "petracoach", "http"
	return &httpMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Handled requests by route and status code.",
		}, []string{"route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "panics_total",
			Help:      "Recovered handler panics.",
		}),
	}
}

// instrument counts requests by the matched route pattern.
func (app *application) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)
		route := r.Pattern
		app.metrics.requests.WithLabelValues(route, strconv.Itoa(sw.statusCode)).Inc()
		app.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
