package main

import (
	"net/http"

	"github.com/myrjola/petracoach/internal/contexthelpers"
	"github.com/myrjola/petracoach/internal/progression"
)

// telemetryPOST replaces the telemetry snapshot of the current user.
func (app *application) telemetryPOST(w http.ResponseWriter, r *http.Request) {
	var t progression.Telemetry
	if !app.decodeJSON(w, r, &t) {
		return
	}
	if t.LastUpdated.IsZero() {
		t.LastUpdated = app.now()
	}
	session, err := app.coach.UpdateTelemetry(r.Context(), contexthelpers.UserID(r.Context()), t)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, session.Progression.Telemetry)
}
