package coach

import (
	"math"
	"slices"

	"github.com/myrjola/petracoach/internal/errors"
	"github.com/myrjola/petracoach/internal/i18n"
	"github.com/myrjola/petracoach/internal/program"
)

// Overview summarizes the progress of a user through the program.
type Overview struct {
	ProgramID     string `json:"programId"`
	PhaseID       string `json:"phaseId"`
	PhaseName     string `json:"phaseName"`
	PhaseIndex    int    `json:"phaseIndex"`
	PhaseCount    int    `json:"phaseCount"`
	Day           int    `json:"day"`
	TotalDays     int    `json:"totalDays"`
	Week          int    `json:"week"`
	PhaseProgress int    `json:"phaseProgressPercent"`
	TotalWorkouts int    `json:"totalWorkouts"`
	// AvgRPE and AvgConfidence are nil without history.
	AvgRPE            *float64 `json:"avgRpe,omitempty"`
	AvgConfidence     *float64 `json:"avgConfidence,omitempty"`
	PainReports       int      `json:"painReports"`
	IntensityModifier float64  `json:"intensityModifier"`
}

// BuildOverview computes the overview of s.
func BuildOverview(content Content, s Session, lang i18n.Language) (Overview, error) {
	p := s.Progression
	phase, err := content.ResolvePhase(p.PackID, p.CurrentPhaseID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "build overview")
	}
	phases := content.Phases()
	phaseIndex := slices.IndexFunc(phases, func(candidate program.Phase) bool { return candidate.ID == phase.ID })

	o := Overview{
		ProgramID:         content.ProgramID(),
		PhaseID:           phase.ID,
		PhaseName:         phase.Name.Get(lang),
		PhaseIndex:        phaseIndex,
		PhaseCount:        len(phases),
		Day:               p.CurrentDay,
		TotalDays:         phase.TotalDays(),
		Week:              program.Week(p.CurrentDay),
		PhaseProgress:     0,
		TotalWorkouts:     len(p.CompletedWorkouts),
		AvgRPE:            nil,
		AvgConfidence:     nil,
		PainReports:       0,
		IntensityModifier: p.Adaptations.IntensityModifier,
	}
	if o.TotalDays > 0 {
		o.PhaseProgress = int(math.Round(float64(min(p.CurrentDay, o.TotalDays)) / float64(o.TotalDays) * 100)) //nolint:mnd // percent.
	}

	if n := len(p.CompletedWorkouts); n > 0 {
		var rpe, confidence int
		for _, w := range p.CompletedWorkouts {
			rpe += w.RPE
			confidence += w.Confidence
			o.PainReports += len(w.PainReports)
		}
		avgRPE := float64(rpe) / float64(n)
		avgConfidence := float64(confidence) / float64(n)
		o.AvgRPE = &avgRPE
		o.AvgConfidence = &avgConfidence
	}
	return o, nil
}
