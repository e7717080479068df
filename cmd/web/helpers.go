package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/petracoach/internal/coach"
	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/program"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "write response", errors.SlogError(err))
	}
}

// decodeJSON decodes the request body into v and answers 400 when the body is malformed.
func (app *application) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "client error", slog.Int("status", status), errors.SlogError(err))
	app.writeError(w, status, err.Error())
}

func (app *application) writeError(w http.ResponseWriter, status int, message string) {
	body, _ := json.Marshal(errorResponse{Error: message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// coachError maps coach and content errors to responses.
func (app *application) coachError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, coach.ErrRejected):
		app.clientError(w, r, http.StatusConflict, err)
	case errors.Is(err, coach.ErrUnknownPhase), errors.Is(err, program.ErrNotFound):
		app.clientError(w, r, http.StatusNotFound, err)
	default:
		app.serverError(w, r, err)
	}
}
