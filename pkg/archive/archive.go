// Package archive maintains the monthly per-category CSV archives.
//
// An archive holds every row ever merged for its (category, month),
// sorted by timestamp. Merging rewrites the whole file so new rows land in
// chronological position rather than being appended at the end.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/ccollicutt/auditexport/pkg/activity"
)

// MonthLayout formats the year-month part of archive names.
const MonthLayout = "2006-01"

// IOError reports an archive that could not be read or written.
// It fails the merge for one category only.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("archive %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ErrBadHeader is returned when an existing archive's header does not match activity.Columns.
var ErrBadHeader = errors.New("unexpected header")

// ErrFieldCount is returned for an archive row without exactly one field per column.
var ErrFieldCount = errors.New("wrong number of fields")

// MergeResult describes a completed merge.
type MergeResult struct {
	Path     string
	Existing int
	Added    int
	Total    int
}

// Merger reads, merges and rewrites archives under a directory.
type Merger struct {
	dir string
}

// NewMerger creates a Merger rooted at dir. The directory is created on first write.
func NewMerger(dir string) *Merger {
	return &Merger{dir: dir}
}

// Path returns the archive file path for category and the month containing month.
func (m *Merger) Path(category string, month time.Time) string {
	return filepath.Join(m.dir, FileName(category, month))
}

// FileName returns the archive file name for category and month.
func FileName(category string, month time.Time) string {
	return fmt.Sprintf("%s_logs_%s.csv", category, month.Format(MonthLayout))
}

// Merge adds rows to the archive for (category, month). Existing rows come
// first, then the new ones; the union is stable-sorted by timestamp and the
// file is replaced. Rows are not deduplicated.
func (m *Merger) Merge(ctx context.Context, category string, month time.Time, rows []activity.Row) (*MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := m.Path(category, month)

	existing, err := Read(path)
	if err != nil {
		return nil, err
	}

	all := make([]activity.Row, 0, len(existing)+len(rows))
	all = append(all, existing...)
	all = append(all, rows...)
	SortRows(all)

	if err := write(path, all); err != nil {
		return nil, err
	}

	return &MergeResult{
		Path:     path,
		Existing: len(existing),
		Added:    len(rows),
		Total:    len(all),
	}, nil
}

// SortRows stable-sorts rows by timestamp. ISO-8601 timestamps order
// lexicographically in chronological order.
func SortRows(rows []activity.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp < rows[j].Timestamp
	})
}

// Read parses an archive. A missing file yields no rows and no error.
func Read(path string) ([]activity.Row, error) {
	f, err := os.Open(path) // #nosec G304 -- archive paths are derived from configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &IOError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	rows, err := decode(f)
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	return rows, nil
}

func decode(r io.Reader) ([]activity.Row, error) {
	rr := newRecordReader(r)

	header, err := rr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !slices.Equal(header, activity.Columns) {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
	}

	var rows []activity.Row
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(activity.Columns) {
			return nil, fmt.Errorf("%w: got %d fields, want %d", ErrFieldCount, len(rec), len(activity.Columns))
		}
		rows = append(rows, activity.RowFromFields(rec))
	}
	return rows, nil
}

func encode(rows []activity.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(activity.Columns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row.Fields()); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func write(path string, rows []activity.Row) error {
	data, err := encode(rows)
	if err != nil {
		return &IOError{Path: path, Op: "encode", Err: err}
	}
	if err := atomicWriteFile(path, data, 0644); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}
