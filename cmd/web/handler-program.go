package main

import (
	"net/http"

	"github.com/myrjola/petracoach/internal/contexthelpers"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/program"
)

type phaseSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	DurationWeeks int    `json:"durationWeeks"`
	TotalDays     int    `json:"totalDays"`
	DaysPerWeek   int    `json:"daysPerWeek"`
}

type programView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Goal        program.Goal   `json:"goal"`
	Language    i18n.Language  `json:"language"`
	Phases      []phaseSummary `json:"phases"`
}

func (app *application) programGET(w http.ResponseWriter, r *http.Request) {
	lang := contexthelpers.Language(r.Context())
	p := app.pack.Manifest().Program
	view := programView{
		ID:          p.ID,
		Title:       p.Title.Get(lang),
		Description: p.Description.Get(lang),
		Goal:        p.Goal,
		Language:    lang,
		Phases:      make([]phaseSummary, 0, len(p.Phases)),
	}
	for _, phase := range p.Phases {
		view.Phases = append(view.Phases, phaseSummary{
			ID:            phase.ID,
			Name:          phase.Name.Get(lang),
			Description:   phase.Description.Get(lang),
			DurationWeeks: phase.DurationWeeks,
			TotalDays:     phase.TotalDays(),
			DaysPerWeek:   phase.WorkoutSchedule.DaysPerWeek,
		})
	}
	app.writeJSON(w, r, http.StatusOK, view)
}

type markdownView struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

func (app *application) programMarkdownGET(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("path")
	html, err := app.pack.Markdown(name)
	if err != nil {
		app.coachError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, markdownView{Path: name, HTML: html})
}
