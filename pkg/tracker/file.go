package tracker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps tracked days in a text file, one ISO date per line.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads all non-blank lines. A missing file is an empty set.
func (s *FileStore) Load(_ context.Context) (map[string]struct{}, error) {
	days := make(map[string]struct{})

	f, err := os.Open(s.path) // #nosec G304 -- configured tracking file path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return days, nil
		}
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			days[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return days, nil
}

// Append adds day as a new line and syncs the file.
func (s *FileStore) Append(_ context.Context, day string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // #nosec G304 -- configured tracking file path
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	if _, err := f.WriteString(day + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", s.path, err)
	}
	return f.Close()
}

// Close is a no-op; the file is opened per call.
func (s *FileStore) Close() error {
	return nil
}
