package main

import (
	"net/http"
	"strconv"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	ProgramID string `json:"programId"`
}

// healthy responds with a JSON object indicating that the server is healthy.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", ProgramID: app.pack.ProgramID()})
}

// testTimeout sleeps for the sleep_ms query parameter before responding.
func (app *application) testTimeout(w http.ResponseWriter, r *http.Request) {
	sleepMsStr := r.URL.Query().Get("sleep_ms")
	if sleepMsStr == "" {
		sleepMsStr = "0"
	}

	sleepMs, err := strconv.Atoi(sleepMsStr)
	if err != nil {
		app.writeError(w, http.StatusBadRequest, "invalid sleep_ms parameter")
		return
	}

	if sleepMs > 0 {
		time.Sleep(time.Duration(sleepMs) * time.Millisecond)
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"completed","slept_ms":` + strconv.Itoa(sleepMs) + `}`))
}
