// Package tracker records which calendar days have been exported and picks
// the next day to export.
package tracker

import (
	"context"
	"fmt"
	"time"
)

// DayLayout is the ISO-8601 date layout used in storage.
const DayLayout = "2006-01-02"

// DefaultLookbackDays bounds how far back FindNextUnpulledDay searches.
const DefaultLookbackDays = 365

// Store persists tracked days. Implementations are append-only.
type Store interface {
	// Load returns every recorded day. Missing storage yields an empty set.
	Load(ctx context.Context) (map[string]struct{}, error)

	// Append durably records day (an ISO date string).
	Append(ctx context.Context, day string) error

	// Close releases resources held by the store.
	Close() error
}

// Tracker selects and records exported days on top of a Store.
type Tracker struct {
	store    Store
	lookback int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLookback sets how many days before today are candidates.
func WithLookback(days int) Option {
	return func(t *Tracker) {
		if days > 0 {
			t.lookback = days
		}
	}
}

// New creates a Tracker over store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{store: store, lookback: DefaultLookbackDays}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Lookback returns the number of candidate days scanned.
func (t *Tracker) Lookback() int {
	return t.lookback
}

// Load returns all tracked days.
func (t *Tracker) Load(ctx context.Context) (map[string]struct{}, error) {
	days, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tracked days: %w", err)
	}
	return days, nil
}

// MarkPulled records day as fully exported.
func (t *Tracker) MarkPulled(ctx context.Context, day time.Time) error {
	if err := t.store.Append(ctx, FormatDay(day)); err != nil {
		return fmt.Errorf("recording %s: %w", FormatDay(day), err)
	}
	return nil
}

// FindNextUnpulledDay scans today-1 back to today-lookback, most recent
// first, and returns the first day not yet tracked. ok is false when every
// candidate is tracked.
func (t *Tracker) FindNextUnpulledDay(ctx context.Context, today time.Time) (day time.Time, ok bool, err error) {
	tracked, err := t.Load(ctx)
	if err != nil {
		return time.Time{}, false, err
	}

	base := Day(today)
	for i := 1; i <= t.lookback; i++ {
		candidate := base.AddDate(0, 0, -i)
		if _, done := tracked[FormatDay(candidate)]; !done {
			return candidate, true, nil
		}
	}
	return time.Time{}, false, nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDay renders the calendar date of t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, s)
}
