package models

import "time"

// RainHistoryFilters defines the query options for the rain history
// endpoint. An explicit time filter (Today or Since) takes precedence
// over the hours window; a Limit without any time filter switches to
// row-limit mode.
type RainHistoryFilters struct {
	Hours int    `schema:"hours"`
	Since string `schema:"since"`
	Today bool   `schema:"today"`
	Limit int    `schema:"limit"`
}

// Window resolves the filters into a concrete since-timestamp and row
// limit relative to now. A zero since with a positive limit means
// row-limit-only mode.
func (f RainHistoryFilters) Window(now time.Time) (since time.Time, limit int) {
	switch {
	case f.Today:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), 0
	case f.Since != "":
		if t, err := time.Parse(time.RFC3339, f.Since); err == nil {
			return t, 0
		}
		// unparseable since falls through to the hours window
	}
	if f.Hours <= 0 {
		if f.Limit > 0 {
			return time.Time{}, f.Limit
		}
		f.Hours = 24
	}
	return now.Add(-time.Duration(f.Hours) * time.Hour), 0
}
