package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/posture-data/postureguard/internal/metrics"
)

// Store persists a baseline as a flat JSON document of the ten metric keys
// at a fixed user-scoped path.
type Store struct {
	Path string
}

// Load reads the persisted baseline. A missing file means "not calibrated
// yet" and returns (nil, nil); a present but malformed or incomplete file is
// an error.
func (s *Store) Load() (*metrics.Vector, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	// Validate against a raw map first so a truncated or foreign document
	// cannot silently zero-fill metrics.
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration file: %w", err)
	}
	for _, key := range metrics.Keys() {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("calibration file missing key %q", key)
		}
	}

	var v metrics.Vector
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse calibration file: %w", err)
	}
	return &v, nil
}

// Save writes the baseline as a whole-file overwrite via temp file + rename.
func (s *Store) Save(v metrics.Vector) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create calibration dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".calibration-*.json")
	if err != nil {
		return fmt.Errorf("create calibration temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write calibration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close calibration temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace calibration file: %w", err)
	}
	return nil
}
