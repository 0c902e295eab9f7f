// Package metrics derives scalar posture features from landmark snapshots.
package metrics

import "github.com/posture-data/postureguard/internal/landmark"

// MinVisibility is the detector confidence below which a required landmark
// disqualifies the whole snapshot.
const MinVisibility = 0.4

// Vector is the fixed set of derived posture metrics for one snapshot, in
// normalized image units. Either all fields are populated from a confident
// snapshot or no vector is produced at all; extraction never partially
// fills one. The raw nose_y / mid_ear_y / mid_shoulder_y values are carried
// for future metrics and are not consumed by the comparison engine.
type Vector struct {
	NoseToShoulderY  float64 `json:"nose_to_shoulder_y"`
	NoseToShoulderX  float64 `json:"nose_to_shoulder_x"`
	EarShoulderDist  float64 `json:"ear_shoulder_dist"`
	ShoulderTilt     float64 `json:"shoulder_tilt"`
	NoseToEarY       float64 `json:"nose_to_ear_y"`
	FaceTilt         float64 `json:"face_tilt"`
	FaceForwardRatio float64 `json:"face_forward_ratio"`
	NoseY            float64 `json:"nose_y"`
	MidEarY          float64 `json:"mid_ear_y"`
	MidShoulderY     float64 `json:"mid_shoulder_y"`
}

// Keys lists the JSON keys of Vector in declaration order. The calibration
// store uses it to validate persisted baselines.
func Keys() []string {
	return []string{
		"nose_to_shoulder_y",
		"nose_to_shoulder_x",
		"ear_shoulder_dist",
		"shoulder_tilt",
		"nose_to_ear_y",
		"face_tilt",
		"face_forward_ratio",
		"nose_y",
		"mid_ear_y",
		"mid_shoulder_y",
	}
}

// Extract derives a metric vector from a snapshot. It reports ok=false when
// any required landmark falls below MinVisibility; the snapshot is skipped,
// not an error. Face metrics default to zero when face landmarks are absent.
// Pure function of its input.
func Extract(snap *landmark.Snapshot) (Vector, bool) {
	required := []landmark.Landmark{
		snap.Nose, snap.LeftEar, snap.RightEar, snap.LeftShoulder, snap.RightShoulder,
	}
	for _, lm := range required {
		if lm.Visibility < MinVisibility {
			return Vector{}, false
		}
	}

	midShoulderY := (snap.LeftShoulder.Y + snap.RightShoulder.Y) / 2
	midShoulderX := (snap.LeftShoulder.X + snap.RightShoulder.X) / 2
	midEarY := (snap.LeftEar.Y + snap.RightEar.Y) / 2

	var faceTilt, faceForwardRatio float64
	if snap.Face != nil {
		faceTilt = snap.Face.Forehead.X - snap.Face.Chin.X
		faceForwardRatio = abs(snap.Face.LeftCheek.X - snap.Face.RightCheek.X)
	}

	return Vector{
		NoseToShoulderY:  snap.Nose.Y - midShoulderY,
		NoseToShoulderX:  snap.Nose.X - midShoulderX,
		EarShoulderDist:  midShoulderY - midEarY,
		ShoulderTilt:     snap.LeftShoulder.Y - snap.RightShoulder.Y,
		NoseToEarY:       snap.Nose.Y - midEarY,
		FaceTilt:         faceTilt,
		FaceForwardRatio: faceForwardRatio,
		NoseY:            snap.Nose.Y,
		MidEarY:          midEarY,
		MidShoulderY:     midShoulderY,
	}, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
