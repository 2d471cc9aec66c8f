package exporter

import (
	"fmt"
	"time"

	"github.com/ccollicutt/auditexport/pkg/source"
)

// State is the terminal state of a run.
type State string

const (
	// StateNothingToDo means every candidate day was already exported.
	StateNothingToDo State = "nothing_to_do"
	// StateCompleted means a day was processed and recorded.
	StateCompleted State = "completed"
)

// CategoryStatus is the outcome for one category.
type CategoryStatus string

const (
	StatusOK      CategoryStatus = "ok"
	StatusPartial CategoryStatus = "partial"
	StatusError   CategoryStatus = "error"
)

// CategoryResult records what happened to one category during a run.
type CategoryResult struct {
	Category       string         `json:"category"`
	Status         CategoryStatus `json:"status"`
	Pages          int            `json:"pages"`
	RecordsFetched int            `json:"records_fetched"`
	RowsWritten    int            `json:"rows_written"`
	ArchiveRows    int            `json:"archive_rows"`
	ArchivePath    string         `json:"archive_path,omitempty"`
	FetchError     string         `json:"fetch_error,omitempty"`
	MergeError     string         `json:"merge_error,omitempty"`
}

// OK reports whether the category was fully fetched and merged.
func (c *CategoryResult) OK() bool {
	return c.Status == StatusOK
}

// RunReport is the outcome of one RunOnce call.
type RunReport struct {
	RunID      string           `json:"run_id"`
	State      State            `json:"state"`
	Day        string           `json:"day,omitempty"`
	Window     *source.Window   `json:"window,omitempty"`
	Categories []CategoryResult `json:"categories,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Duration   time.Duration    `json:"duration"`
}

// Failed returns the categories whose status is not ok.
func (r *RunReport) Failed() []CategoryResult {
	var out []CategoryResult
	for _, c := range r.Categories {
		if !c.OK() {
			out = append(out, c)
		}
	}
	return out
}

// HasFailures reports whether any category is partial or failed.
func (r *RunReport) HasFailures() bool {
	return len(r.Failed()) > 0
}

// TotalRows sums rows written across categories.
func (r *RunReport) TotalRows() int {
	n := 0
	for _, c := range r.Categories {
		n += c.RowsWritten
	}
	return n
}

// TotalRecords sums records fetched across categories.
func (r *RunReport) TotalRecords() int {
	n := 0
	for _, c := range r.Categories {
		n += c.RecordsFetched
	}
	return n
}

// String implements fmt.Stringer for log output.
func (s State) String() string {
	return string(s)
}

// Summary returns a one-line description of the run.
func (r *RunReport) Summary() string {
	switch r.State {
	case StateNothingToDo:
		return "all days in the lookback window have already been exported"
	case StateCompleted:
		failed := len(r.Failed())
		if failed > 0 {
			return fmt.Sprintf("exported %s: %d rows, %d of %d categories incomplete",
				r.Day, r.TotalRows(), failed, len(r.Categories))
		}
		return fmt.Sprintf("exported %s: %d rows across %d categories", r.Day, r.TotalRows(), len(r.Categories))
	default:
		return "run did not complete"
	}
}
