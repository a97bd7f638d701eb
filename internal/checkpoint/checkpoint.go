// Package checkpoint persists the watermark timestamp of the last completed
// feed synchronization.
//
// The value is a single line in the feed's own timestamp format so it can be
// passed straight back as a window bound. Absence of the file is a valid
// state (first run). One writer at a time is assumed; there is no locking.
package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timeFormat matches the feed's window bound layout.
const timeFormat = "2006-01-02T15:04:05.000"

// DefaultLookback is the window used when no checkpoint has been saved yet.
const DefaultLookback = 7 * 24 * time.Hour

// Checkpoint stores and retrieves the last-sync watermark.
type Checkpoint struct {
	path string
}

// New creates a Checkpoint at path, ensuring the parent directory exists.
func New(path string) (*Checkpoint, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Checkpoint{path: path}, nil
}

// Load returns the stored watermark. When no checkpoint exists the default
// look-back window applies: now minus DefaultLookback.
func (c *Checkpoint) Load() (time.Time, error) {
	raw, err := c.Raw()
	if err != nil {
		return time.Time{}, err
	}
	if raw == "" {
		return time.Now().Add(-DefaultLookback), nil
	}
	return time.Parse(timeFormat, raw)
}

// Save overwrites the watermark with ts. Called only after a sync attempt
// completes (including the empty-window no-op); never rolled back.
func (c *Checkpoint) Save(ts time.Time) error {
	return os.WriteFile(c.path, []byte(ts.Format(timeFormat)), 0o644)
}

// Raw returns the stored timestamp string, or "" when no checkpoint exists.
func (c *Checkpoint) Raw() (string, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
