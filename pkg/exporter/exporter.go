// Package exporter runs one export pass: it selects the next unexported day,
// fetches, flattens and archives every category, then records the day.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ccollicutt/auditexport/pkg/activity"
	"github.com/ccollicutt/auditexport/pkg/archive"
	"github.com/ccollicutt/auditexport/pkg/source"
	"github.com/ccollicutt/auditexport/pkg/tracker"
)

// Exporter wires the day tracker, log source and archive merger together.
// It is not safe for concurrent use; runs are expected to be serialized.
type Exporter struct {
	tracker    *tracker.Tracker
	source     source.LogSource
	fetcher    *source.Fetcher
	merger     *archive.Merger
	categories []string
	log        *zap.Logger
	now        func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Exporter) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the wall clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter processing categories in the given order.
func New(t *tracker.Tracker, src source.LogSource, m *archive.Merger, categories []string, opts ...Option) *Exporter {
	e := &Exporter{
		tracker:    t,
		source:     src,
		merger:     m,
		categories: append([]string(nil), categories...),
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.fetcher = source.NewFetcher(e.log)
	return e
}

// RunOnce exports the most recent unexported day before today.
//
// Every category is visited even when earlier ones fail; failures are
// recorded in the report. The day is recorded as pulled once the loop
// finishes, whatever the per-category outcome, so a failed category stays
// incomplete for that day. The returned error is non-nil only when the
// tracked days cannot be read, the context is canceled, or the day cannot
// be recorded.
func (e *Exporter) RunOnce(ctx context.Context, today time.Time) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
	}
	log := e.log.With(zap.String("run_id", report.RunID))

	day, ok, err := e.tracker.FindNextUnpulledDay(ctx, today)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("all days in lookback already exported", zap.Int("lookback_days", e.tracker.Lookback()))
		report.State = StateNothingToDo
		e.finish(report)
		return report, nil
	}

	window := source.DayWindow(day)
	report.Day = window.Day()
	report.Window = &window
	log = log.With(zap.String("day", report.Day))
	log.Info("exporting day", zap.Int("categories", len(e.categories)))

	for _, category := range e.categories {
		result := e.exportCategory(ctx, log, category, window)
		report.Categories = append(report.Categories, result)
	}

	// An interrupted run leaves the day unrecorded, as a crash would.
	if err := ctx.Err(); err != nil {
		e.finish(report)
		return report, fmt.Errorf("run interrupted before recording %s: %w", report.Day, err)
	}

	if err := e.tracker.MarkPulled(ctx, day); err != nil {
		e.finish(report)
		return report, err
	}

	report.State = StateCompleted
	e.finish(report)

	fields := []zap.Field{
		zap.Int("rows", report.TotalRows()),
		zap.Duration("duration", report.Duration),
	}
	if failed := report.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, c := range failed {
			names[i] = c.Category
		}
		log.Warn("day recorded with incomplete categories", append(fields, zap.Strings("incomplete", names))...)
	} else {
		log.Info("day exported", fields...)
	}
	return report, nil
}

func (e *Exporter) exportCategory(ctx context.Context, log *zap.Logger, category string, window source.Window) CategoryResult {
	log = log.With(zap.String("category", category))
	log.Debug("fetching")

	fetched := e.fetcher.Fetch(ctx, e.source, category, window)
	result := CategoryResult{
		Category:       category,
		Status:         CategoryStatus(fetched.Status()),
		Pages:          fetched.Pages,
		RecordsFetched: len(fetched.Records),
	}
	if fetched.Err != nil {
		result.FetchError = fetched.Err.Error()
	}

	rows := activity.Flatten(fetched.Records)

	merged, err := e.merger.Merge(ctx, category, window.Start, rows)
	if err != nil {
		result.Status = StatusError
		result.MergeError = err.Error()
		var ioErr *archive.IOError
		if errors.As(err, &ioErr) {
			log.Error("archive merge failed", zap.String("path", ioErr.Path), zap.Error(err))
		} else {
			log.Error("archive merge failed", zap.Error(err))
		}
		return result
	}

	result.RowsWritten = merged.Added
	result.ArchiveRows = merged.Total
	result.ArchivePath = merged.Path
	log.Debug("archived",
		zap.Int("records", result.RecordsFetched),
		zap.Int("rows", result.RowsWritten),
		zap.String("path", merged.Path))
	return result
}

func (e *Exporter) finish(report *RunReport) {
	report.FinishedAt = e.now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
}
