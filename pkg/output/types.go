// Package output provides formatting for export run reports.
package output

import (
	"time"

	"github.com/ccollicutt/auditexport/pkg/exporter"
)

// Report is a run report plus the context it ran in.
type Report struct {
	Summary  Summary             `json:"summary"`
	Run      *exporter.RunReport `json:"run"`
	Metadata Metadata            `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	State                exporter.State `json:"state"`
	Day                  string         `json:"day,omitempty"`
	CategoriesChecked    int            `json:"categories_checked"`
	CategoriesIncomplete int            `json:"categories_incomplete"`
	RecordsFetched       int            `json:"records_fetched"`
	RowsWritten          int            `json:"rows_written"`
	Message              string         `json:"message"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is empty when built-in defaults were used.
	ConfigFile string        `json:"config_file,omitempty"`
	LogDir     string        `json:"log_dir"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// NewReport wraps a run report for formatting.
func NewReport(run *exporter.RunReport, configFile, logDir string) *Report {
	return &Report{
		Run: run,
		Summary: Summary{
			State:                run.State,
			Day:                  run.Day,
			CategoriesChecked:    len(run.Categories),
			CategoriesIncomplete: len(run.Failed()),
			RecordsFetched:       run.TotalRecords(),
			RowsWritten:          run.TotalRows(),
			Message:              run.Summary(),
		},
		Metadata: Metadata{
			ConfigFile: configFile,
			LogDir:     logDir,
			StartedAt:  run.StartedAt,
			Duration:   run.Duration,
		},
	}
}

// HasIssues returns true if any category was incomplete.
func (r *Report) HasIssues() bool {
	return r.Summary.CategoriesIncomplete > 0
}
