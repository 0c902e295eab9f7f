package landmark

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNoDetection reports that the provider produced a frame but no person
// was detected in it. Callers should skip the tick and try again; it is not
// a session-fatal condition.
var ErrNoDetection = errors.New("landmark: no person detected")

// Provider supplies one snapshot per call. Next may block until the
// detector produces a frame; implementations must honor ctx cancellation.
type Provider interface {
	Next(ctx context.Context) (*Snapshot, error)
}

// StreamProvider reads newline-delimited JSON snapshots from an io.Reader,
// typically the stdout of an external detector process. A blank line means
// the detector saw the frame but found no person.
type StreamProvider struct {
	scanner *bufio.Scanner
}

// NewStreamProvider wraps r in a line-oriented snapshot reader.
func NewStreamProvider(r io.Reader) *StreamProvider {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamProvider{scanner: sc}
}

// Next returns the next snapshot from the stream. It returns io.EOF when the
// stream ends and ErrNoDetection for blank lines.
func (p *StreamProvider) Next(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return nil, fmt.Errorf("landmark stream read: %w", err)
		}
		return nil, io.EOF
	}
	line := p.scanner.Bytes()
	if len(line) == 0 {
		return nil, ErrNoDetection
	}
	var snap Snapshot
	if err := json.Unmarshal(line, &snap); err != nil {
		return nil, fmt.Errorf("landmark stream decode: %w", err)
	}
	return &snap, nil
}

// StaticProvider returns the same snapshot on every call. It backs the demo
// mode and deterministic tests.
type StaticProvider struct {
	Snapshot *Snapshot
	// Err, when set, is returned instead of a snapshot.
	Err error
}

// Next returns the configured snapshot or error.
func (p *StaticProvider) Next(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Snapshot, nil
}

// QueueProvider replays a fixed sequence of snapshots, then returns io.EOF.
// A nil entry yields ErrNoDetection for that call.
type QueueProvider struct {
	Snapshots []*Snapshot
	next      int
}

// Next returns the next queued snapshot.
func (p *QueueProvider) Next(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.next >= len(p.Snapshots) {
		return nil, io.EOF
	}
	s := p.Snapshots[p.next]
	p.next++
	if s == nil {
		return nil, ErrNoDetection
	}
	return s, nil
}
