// Package posture implements the posture scoring core: sensitivity presets,
// baseline comparison with per-issue penalty weighting, and temporal score
// smoothing.
package posture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Sensitivity selects one of the three built-in threshold presets.
type Sensitivity string

// The three presets, ordered from most to least permissive.
const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// DefaultSensitivity is used when no preset has been selected.
const DefaultSensitivity = SensitivityMedium

// ParseSensitivity validates a preset name.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(s) {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return Sensitivity(s), nil
	}
	return "", fmt.Errorf("unknown sensitivity %q (want low, medium or high)", s)
}

// ThresholdSet holds the four deviation thresholds, in normalized image
// units. It is passed by value into Compare on every tick; switching presets
// is a lookup, never a mutation of shared state.
type ThresholdSet struct {
	HeadDrop     float64 `json:"head_drop"`
	Slouch       float64 `json:"slouch"`
	HeadForward  float64 `json:"head_forward"`
	ShoulderTilt float64 `json:"shoulder_tilt"`
}

// Validate checks that all thresholds are positive.
func (t ThresholdSet) Validate() error {
	if t.HeadDrop <= 0 {
		return fmt.Errorf("head_drop must be positive, got %f", t.HeadDrop)
	}
	if t.Slouch <= 0 {
		return fmt.Errorf("slouch must be positive, got %f", t.Slouch)
	}
	if t.HeadForward <= 0 {
		return fmt.Errorf("head_forward must be positive, got %f", t.HeadForward)
	}
	if t.ShoulderTilt <= 0 {
		return fmt.Errorf("shoulder_tilt must be positive, got %f", t.ShoulderTilt)
	}
	return nil
}

var presets = map[Sensitivity]ThresholdSet{
	SensitivityLow:    {HeadDrop: 0.06, Slouch: 0.09, HeadForward: 0.045, ShoulderTilt: 0.04},
	SensitivityMedium: {HeadDrop: 0.04, Slouch: 0.06, HeadForward: 0.03, ShoulderTilt: 0.025},
	SensitivityHigh:   {HeadDrop: 0.025, Slouch: 0.04, HeadForward: 0.02, ShoulderTilt: 0.015},
}

// Thresholds returns the ThresholdSet for a preset. Unknown values fall back
// to the medium preset.
func Thresholds(s Sensitivity) ThresholdSet {
	if t, ok := presets[s]; ok {
		return t
	}
	return presets[DefaultSensitivity]
}

// ThresholdOverrides is an optional JSON tuning file layered over a preset.
// Fields omitted from the file retain the preset's values, so partial
// overrides are safe.
type ThresholdOverrides struct {
	HeadDrop     *float64 `json:"head_drop,omitempty"`
	Slouch       *float64 `json:"slouch,omitempty"`
	HeadForward  *float64 `json:"head_forward,omitempty"`
	ShoulderTilt *float64 `json:"shoulder_tilt,omitempty"`
}

// LoadThresholdOverrides reads an overrides file. The file must have a .json
// extension.
func LoadThresholdOverrides(path string) (*ThresholdOverrides, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("threshold overrides file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read threshold overrides: %w", err)
	}
	var o ThresholdOverrides
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse threshold overrides: %w", err)
	}
	return &o, nil
}

// Apply layers the overrides over base and validates the result.
func (o *ThresholdOverrides) Apply(base ThresholdSet) (ThresholdSet, error) {
	t := base
	if o.HeadDrop != nil {
		t.HeadDrop = *o.HeadDrop
	}
	if o.Slouch != nil {
		t.Slouch = *o.Slouch
	}
	if o.HeadForward != nil {
		t.HeadForward = *o.HeadForward
	}
	if o.ShoulderTilt != nil {
		t.ShoulderTilt = *o.ShoulderTilt
	}
	if err := t.Validate(); err != nil {
		return ThresholdSet{}, fmt.Errorf("invalid threshold overrides: %w", err)
	}
	return t, nil
}
