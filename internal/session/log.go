package session

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/posture-data/postureguard/internal/posture"
)

// Log is an append-only CSV record of retained samples. The header row is
// written once, when the file does not yet exist.
type Log struct {
	f *csv.Writer
	c *os.File
}

// OpenLog opens (creating if needed) the CSV session log at path.
func OpenLog(path string) (*Log, error) {
	var writeHeader bool
	if info, err := os.Stat(path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	} else if err != nil {
		return nil, fmt.Errorf("stat session log: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	l := &Log{f: csv.NewWriter(f), c: f}
	if writeHeader {
		if err := l.f.Write([]string{"timestamp", "score", "issues"}); err != nil {
			f.Close()
			return nil, fmt.Errorf("write session log header: %w", err)
		}
	}
	return l, nil
}

// Append writes one sample row and flushes it.
func (l *Log) Append(ts time.Time, score int, issues []posture.Issue) error {
	labels := make([]string, len(issues))
	for i, is := range issues {
		labels[i] = is.Label
	}
	row := []string{ts.Format(time.RFC3339), strconv.Itoa(score), strings.Join(labels, "; ")}
	if err := l.f.Write(row); err != nil {
		return fmt.Errorf("append session log: %w", err)
	}
	l.f.Flush()
	if err := l.f.Error(); err != nil {
		return fmt.Errorf("flush session log: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.f.Flush()
	return l.c.Close()
}
