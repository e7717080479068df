package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	protection, err := app.crossOriginProtection()
	if err != nil {
		return nil, err
	}

	var (
		api = func(next http.Handler) http.Handler {
			return app.recoverPanic(app.logAndTraceRequest(secureHeaders(noCache(protection.Handler(
				app.instrument(app.commonContext(app.timeout(next))))))))
		}
		user = func(next http.Handler) http.Handler {
			return api(app.sessionManager.LoadAndSave(app.identify(next)))
		}
	)

	mux.Handle("GET /api/coach", user(http.HandlerFunc(app.coachGET)))
	mux.Handle("POST /api/coach/advance", user(http.HandlerFunc(app.coachAdvancePOST)))
	mux.Handle("POST /api/coach/workout/complete", user(http.HandlerFunc(app.coachWorkoutCompletePOST)))
	mux.Handle("POST /api/coach/feedback/rpe", user(http.HandlerFunc(app.coachRPEPOST)))
	mux.Handle("POST /api/coach/feedback/confidence", user(http.HandlerFunc(app.coachConfidencePOST)))
	mux.Handle("POST /api/coach/feedback/pain", user(http.HandlerFunc(app.coachPainPOST)))
	mux.Handle("POST /api/coach/feedback/notes", user(http.HandlerFunc(app.coachNotesPOST)))
	mux.Handle("POST /api/coach/phases/{phaseID}", user(http.HandlerFunc(app.coachPhasePOST)))
	mux.Handle("GET /api/coach/overview", user(http.HandlerFunc(app.coachOverviewGET)))
	mux.Handle("GET /api/coach/export", user(http.HandlerFunc(app.coachExportGET)))

	mux.Handle("POST /api/telemetry", user(http.HandlerFunc(app.telemetryPOST)))

	mux.Handle("GET /api/program", api(http.HandlerFunc(app.programGET)))
	mux.Handle("GET /api/program/markdown", api(http.HandlerFunc(app.programMarkdownGET)))

	mux.Handle("GET /api/healthy", api(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /api/test/timeout", api(http.HandlerFunc(app.testTimeout)))

	mux.Handle("GET /metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})) //nolint:exhaustruct // defaults.

	return app.cors(mux), nil
}
