// Package metrics writes run metrics in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ccollicutt/auditexport/pkg/exporter"
	"github.com/ccollicutt/auditexport/pkg/tracker"
)

const namespace = "auditexport"

// Collect registers the gauges describing report on a fresh registry.
func Collect(report *exporter.RunReport) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_state",
		Help:      "1 for the terminal state of the last run.",
	}, []string{"state"})
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "category_rows_written",
		Help:      "Rows appended to the category archive by the last run.",
	}, []string{"category"})
	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "category_records_fetched",
		Help:      "Activity records fetched for the category by the last run.",
	}, []string{"category"})
	ok := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "category_ok",
		Help:      "1 if the category was fully fetched and merged by the last run.",
	}, []string{"category"})

	collectors := []prometheus.Collector{lastRun, state, rows, records, ok}

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = report.StartedAt
	}
	lastRun.Set(float64(finished.Unix()))
	state.WithLabelValues(report.State.String()).Set(1)

	if report.Day != "" {
		day, err := tracker.ParseDay(report.Day)
		if err != nil {
			return nil, fmt.Errorf("parsing report day: %w", err)
		}
		lastDay := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_exported_day_timestamp_seconds",
			Help:      "Unix time of UTC midnight of the last exported day.",
		})
		lastDay.Set(float64(day.Unix()))
		collectors = append(collectors, lastDay)
	}

	for _, c := range report.Categories {
		rows.WithLabelValues(c.Category).Set(float64(c.RowsWritten))
		records.WithLabelValues(c.Category).Set(float64(c.RecordsFetched))
		v := 0.0
		if c.OK() {
			v = 1
		}
		ok.WithLabelValues(c.Category).Set(v)
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}
	return reg, nil
}

// WriteTextfile writes the report's metrics to path atomically.
func WriteTextfile(path string, report *exporter.RunReport) error {
	reg, err := Collect(report)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
