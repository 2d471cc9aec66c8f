package source

import (
	"time"

	"github.com/ccollicutt/auditexport/pkg/tracker"
)

// Window is a half-open UTC interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayWindow returns the window covering the UTC calendar day of day.
func DayWindow(day time.Time) Window {
	start := tracker.Day(day)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Day returns the window start as a tracked-day string.
func (w Window) Day() string {
	return tracker.FormatDay(w.Start)
}
