package metrics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/posture-data/postureguard/internal/landmark"
)

func uprightSnapshot() *landmark.Snapshot {
	return &landmark.Snapshot{
		Nose:          landmark.Landmark{X: 0.50, Y: 0.30, Visibility: 0.99},
		LeftEar:       landmark.Landmark{X: 0.55, Y: 0.32, Visibility: 0.95},
		RightEar:      landmark.Landmark{X: 0.45, Y: 0.34, Visibility: 0.95},
		LeftShoulder:  landmark.Landmark{X: 0.62, Y: 0.55, Visibility: 0.98},
		RightShoulder: landmark.Landmark{X: 0.38, Y: 0.53, Visibility: 0.98},
	}
}

func TestExtract(t *testing.T) {
	snap := uprightSnapshot()
	got, ok := Extract(snap)
	if !ok {
		t.Fatal("Extract() not ok for a fully visible snapshot")
	}

	want := Vector{
		NoseToShoulderY: 0.30 - 0.54,
		NoseToShoulderX: 0.50 - 0.50,
		EarShoulderDist: 0.54 - 0.33,
		ShoulderTilt:    0.55 - 0.53,
		NoseToEarY:      0.30 - 0.33,
		NoseY:           0.30,
		MidEarY:         0.33,
		MidShoulderY:    0.54,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractFaceMetrics(t *testing.T) {
	snap := uprightSnapshot()
	snap.Face = &landmark.FaceLandmarks{
		Forehead:   landmark.Landmark{X: 0.51, Y: 0.20},
		Chin:       landmark.Landmark{X: 0.49, Y: 0.40},
		LeftCheek:  landmark.Landmark{X: 0.58, Y: 0.30},
		RightCheek: landmark.Landmark{X: 0.42, Y: 0.30},
	}

	got, ok := Extract(snap)
	if !ok {
		t.Fatal("Extract() not ok")
	}
	if diff := cmp.Diff(0.02, got.FaceTilt, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("FaceTilt mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(0.16, got.FaceForwardRatio, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("FaceForwardRatio mismatch:\n%s", diff)
	}
}

func TestExtractFaceWidthIsAbsolute(t *testing.T) {
	snap := uprightSnapshot()
	snap.Face = &landmark.FaceLandmarks{
		LeftCheek:  landmark.Landmark{X: 0.42},
		RightCheek: landmark.Landmark{X: 0.58},
	}
	got, ok := Extract(snap)
	if !ok {
		t.Fatal("Extract() not ok")
	}
	if got.FaceForwardRatio < 0 {
		t.Errorf("FaceForwardRatio = %f, want non-negative", got.FaceForwardRatio)
	}
}

func TestExtractNoFaceDefaultsToZero(t *testing.T) {
	got, ok := Extract(uprightSnapshot())
	if !ok {
		t.Fatal("Extract() not ok")
	}
	if got.FaceTilt != 0 || got.FaceForwardRatio != 0 {
		t.Errorf("face metrics = (%f, %f), want (0, 0) without face landmarks",
			got.FaceTilt, got.FaceForwardRatio)
	}
}

func TestExtractLowVisibility(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*landmark.Snapshot)
	}{
		{"nose hidden", func(s *landmark.Snapshot) { s.Nose.Visibility = 0.39 }},
		{"left ear hidden", func(s *landmark.Snapshot) { s.LeftEar.Visibility = 0.1 }},
		{"right ear hidden", func(s *landmark.Snapshot) { s.RightEar.Visibility = 0 }},
		{"left shoulder hidden", func(s *landmark.Snapshot) { s.LeftShoulder.Visibility = 0.2 }},
		{"right shoulder hidden", func(s *landmark.Snapshot) { s.RightShoulder.Visibility = 0.3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := uprightSnapshot()
			tt.mutate(snap)
			if _, ok := Extract(snap); ok {
				t.Error("Extract() ok for a snapshot with a low-visibility required landmark")
			}
		})
	}
}

func TestExtractVisibilityBoundary(t *testing.T) {
	// Exactly at the threshold is still usable; only below it fails.
	snap := uprightSnapshot()
	snap.Nose.Visibility = MinVisibility
	if _, ok := Extract(snap); !ok {
		t.Errorf("Extract() failed at visibility == %v", MinVisibility)
	}
}

func TestKeysMatchVectorJSON(t *testing.T) {
	keys := Keys()
	if len(keys) != 10 {
		t.Fatalf("Keys() returned %d keys, want 10", len(keys))
	}
	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key %q", k)
		}
		seen[k] = true
	}
}
