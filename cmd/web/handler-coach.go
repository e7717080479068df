package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/myrjola/petracoach/internal/coach"
	"github.com/myrjola/petracoach/internal/contexthelpers"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/progression"
)

// coachView is the current session together with the plan of the current day.
type coachView struct {
	coach.Session
	// Plan is nil when the current phase can't be resolved.
	Plan *coach.DayPlan `json:"plan,omitempty"`
}

func (app *application) renderSession(w http.ResponseWriter, r *http.Request, session coach.Session) {
	ctx := r.Context()
	view := coachView{Session: session, Plan: nil}
	plan, err := coach.Prescribe(app.coach.Content(), session, contexthelpers.Language(ctx))
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "prescribe current day", errors.SlogError(err))
	} else {
		view.Plan = &plan
	}
	app.writeJSON(w, r, http.StatusOK, view)
}

func (app *application) coachGET(w http.ResponseWriter, r *http.Request) {
	session, err := app.coach.Session(r.Context(), contexthelpers.UserID(r.Context()))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.renderSession(w, r, session)
}

// dispatch feeds event to the coach of the current user and renders the resulting session.
func (app *application) dispatch(w http.ResponseWriter, r *http.Request, event coach.Event) {
	session, err := app.coach.Dispatch(r.Context(), contexthelpers.UserID(r.Context()), event)
	if err != nil {
		app.coachError(w, r, err)
		return
	}
	app.renderSession(w, r, session)
}

func (app *application) coachAdvancePOST(w http.ResponseWriter, r *http.Request) {
	app.dispatch(w, r, coach.Advance{})
}

type completeWorkoutRequest struct {
	Exercises []progression.CompletedExercise `json:"exercises"`
}

func (app *application) coachWorkoutCompletePOST(w http.ResponseWriter, r *http.Request) {
	var req completeWorkoutRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	app.dispatch(w, r, coach.CompleteWorkout{Exercises: req.Exercises})
}

type ratingRequest struct {
	Value int `json:"value"`
}

func (app *application) coachRPEPOST(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	app.dispatch(w, r, coach.SetRPE{Value: req.Value})
}

func (app *application) coachConfidencePOST(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	app.dispatch(w, r, coach.SetConfidence{Value: req.Value})
}

func (app *application) coachPainPOST(w http.ResponseWriter, r *http.Request) {
	var req progression.PainReport
	if !app.decodeJSON(w, r, &req) {
		return
	}
	app.dispatch(w, r, coach.ReportPain{Report: req})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (app *application) coachNotesPOST(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	app.dispatch(w, r, coach.SetNotes{Notes: req.Notes})
}

func (app *application) coachPhasePOST(w http.ResponseWriter, r *http.Request) {
	app.dispatch(w, r, coach.GoToPhase{PhaseID: r.PathValue("phaseID")})
}

func (app *application) coachOverviewGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overview, err := app.coach.Overview(ctx, contexthelpers.UserID(ctx), contexthelpers.Language(ctx))
	if err != nil {
		app.coachError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, overview)
}

// coachExportGET streams an SQLite export of the user's data. Stores that can't export to a database file get the
// progression as a JSON attachment instead.
func (app *application) coachExportGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.UserID(ctx)

	if app.exporter == nil {
		session, err := app.coach.Session(ctx, userID)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="progression.json"`)
		app.writeJSON(w, r, http.StatusOK, session.Progression)
		return
	}

	exportPath, err := app.exporter.ExportUser(ctx, userID, os.TempDir())
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "export user data"))
		return
	}
	defer func() {
		if removeErr := os.RemoveAll(filepath.Dir(exportPath)); removeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "failed to remove temporary export",
				slog.String("path", exportPath), errors.SlogError(removeErr))
		}
	}()

	file, err := os.Open(exportPath)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "open export file"))
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "failed to close export file",
				slog.String("path", exportPath), errors.SlogError(closeErr))
		}
	}()

	w.Header().Set("Content-Type", "application/x-sqlite3")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filepath.Base(exportPath)))
	if _, err = io.Copy(w, file); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to stream export file to client",
			slog.String("path", exportPath), errors.SlogError(err))
	}
}
