package rules

import "github.com/openfiscal/cclastrib/internal/model"

// TransitionResolver resolves the year-specific phase-in percentage of a
// tax from its transition schedule.
type TransitionResolver struct{}

// Resolve scans the schedule for the given year and returns the decimal
// fraction. The schedule is assumed to hold one row per year; with
// duplicates the first row wins. A missing year returns ok=false and the
// caller defaults to 0.0.
func (TransitionResolver) Resolve(rows []model.TransitionRow, year int) (float64, bool) {
	for _, r := range rows {
		if r.Year == year {
			return r.Percent, true
		}
	}
	return 0, false
}
