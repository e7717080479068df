package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/petracoach/internal/contexthelpers"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/testhelpers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type timeoutResponseWriter struct {
	httptest.ResponseRecorder
}

func newTimeoutResponseWriter() *timeoutResponseWriter {
	return &timeoutResponseWriter{
		ResponseRecorder: *httptest.NewRecorder(),
	}
}

// SetWriteDeadline is needed to not get "feature not implemented" error.
func (w *timeoutResponseWriter) SetWriteDeadline(_ time.Time) error {
	return nil
}

// newMinimalApplication has everything the middleware needs but no coach.
func newMinimalApplication(t *testing.T) *application {
	t.Helper()
	registry := prometheus.NewRegistry()
	return &application{ //nolint:exhaustruct // this is a test
		logger:         testhelpers.NewTestLogger(t),
		sessionManager: scs.New(),
		registry:       registry,
		metrics:        newHTTPMetrics(registry),
		language:       i18n.Polish,
		now:            time.Now,
	}
}

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleepMS  int
		timesOut bool
	}{
		{
			name:     "completes within timeout",
			sleepMS:  500,
			timesOut: false,
		},
		{
			name:     "times out",
			sleepMS:  3000,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := newMinimalApplication(t)
				handler, err := app.routes()
				if err != nil {
					t.Fatalf("Failed to set up routes: %v", err)
				}

				url := fmt.Sprintf("/api/test/timeout?sleep_ms=%d", tt.sleepMS)
				req := httptest.NewRequest(http.MethodGet, url, nil)
				w := newTimeoutResponseWriter()

				handler.ServeHTTP(w, req)

				time.Sleep(time.Duration(tt.sleepMS) * time.Millisecond)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}

					if !strings.Contains(w.Body.String(), "timed out") {
						t.Errorf("Expected timeout message in response body, got: %s", w.Body.String())
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_application_commonContext(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		acceptLanguage string
		want           i18n.Language
	}{
		{name: "configured default", query: "", acceptLanguage: "", want: i18n.Polish},
		{name: "accept language", query: "", acceptLanguage: "en-GB,en;q=0.9", want: i18n.English},
		{name: "unsupported accept language", query: "", acceptLanguage: "de-DE", want: i18n.Polish},
		{name: "query wins", query: "?lang=pl", acceptLanguage: "en", want: i18n.Polish},
		{name: "unsupported query", query: "?lang=xx", acceptLanguage: "en", want: i18n.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMinimalApplication(t)
			var got i18n.Language
			handler := app.commonContext(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = contexthelpers.Language(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/program"+tt.query, nil)
			if tt.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tt.acceptLanguage)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("language = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_application_recoverPanic(t *testing.T) {
	app := newMinimalApplication(t)
	handler := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/coach", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := testutil.ToFloat64(app.metrics.panics); got != 1 {
		t.Errorf("panics = %v, want 1", got)
	}
}

func Test_application_crossOrigin(t *testing.T) {
	app := newMinimalApplication(t)
	app.corsOrigins = []string{"https://app.example.com"}
	handler, err := app.routes()
	if err != nil {
		t.Fatalf("routes: %v", err)
	}

	t.Run("preflight from trusted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/coach/advance", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})

	t.Run("post from foreign site", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/coach/advance", nil)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})
}

func Test_secureHeaders(t *testing.T) {
	handler := secureHeaders(noCache(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/program", nil))

	for header, want := range map[string]string{
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "deny",
		"Cache-Control":           "no-cache, no-store, must-revalidate",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}
