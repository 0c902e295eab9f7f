package posture

import (
	"math"

	"github.com/posture-data/postureguard/internal/metrics"
)

// IssueKind tags a detected posture problem.
type IssueKind string

// Issue kinds, in the fixed order the checks are evaluated.
const (
	KindHeadDrop     IssueKind = "head_drop"
	KindSlouch       IssueKind = "slouch"
	KindLeanLeft     IssueKind = "lean_left"
	KindLeanRight    IssueKind = "lean_right"
	KindShoulderTilt IssueKind = "shoulder_tilt"
	KindForwardLean  IssueKind = "forward_lean"
)

// Issue is one detected posture problem with the magnitude of its deviation
// from the baseline.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	Label     string    `json:"label"`
	Deviation float64   `json:"deviation"`
}

// Advice returns the short imperative phrase an alert sink speaks or shows
// for this issue.
func (i Issue) Advice() string {
	switch i.Kind {
	case KindHeadDrop:
		return "Chin up!"
	case KindSlouch:
		return "Sit up straight!"
	case KindLeanLeft, KindLeanRight:
		return "Center up!"
	case KindShoulderTilt:
		return "Level out!"
	case KindForwardLean:
		return "Sit back!"
	}
	return "Fix your posture!"
}

// Penalty weights per issue. Simultaneous issues compound additively; the
// final score is clamped at zero rather than normalized.
const (
	weightHeadDrop     = 30
	weightSlouch       = 35
	weightLean         = 20
	weightShoulderTilt = 20
	weightForwardLean  = 25
)

// severitySpan is the multiple of a threshold at which an issue's severity
// saturates at 1.0.
const severitySpan = 3

// forwardLeanTrigger and forwardLeanSeverityScale are fixed absolute values,
// not threshold-relative like the other checks. Kept as observed in the
// original tuning.
const (
	forwardLeanTrigger       = 0.03
	forwardLeanSeverityScale = 0.09
)

// shoulderTiltBaselineGuard suppresses the shoulders-uneven check when the
// baseline itself was captured with nearly as much tilt, so a user whose
// resting posture is uneven is not penalized for it.
const shoulderTiltBaselineGuard = 0.01

// Compare scores a metric vector against the baseline under the given
// thresholds. It returns the detected issues in evaluation order (not
// severity order) and a score in [0,100].
func Compare(current, baseline metrics.Vector, t ThresholdSet) ([]Issue, int) {
	var issues []Issue
	penalty := 0.0

	// Head drop: nose sinking relative to the shoulder line.
	if d := current.NoseToShoulderY - baseline.NoseToShoulderY; d > t.HeadDrop {
		severity := math.Min(1, d/(t.HeadDrop*severitySpan))
		penalty += severity * weightHeadDrop
		issues = append(issues, Issue{Kind: KindHeadDrop, Label: "Head dropping", Deviation: d})
	}

	// Slouch: the ear-to-shoulder vertical span shrinking.
	if d := baseline.EarShoulderDist - current.EarShoulderDist; d > t.Slouch {
		severity := math.Min(1, d/(t.Slouch*severitySpan))
		penalty += severity * weightSlouch
		issues = append(issues, Issue{Kind: KindSlouch, Label: "Slouching", Deviation: d})
	}

	// Lateral lean: nose drifting sideways off the shoulder midpoint.
	offset := current.NoseToShoulderX - baseline.NoseToShoulderX
	if drift := math.Abs(offset); drift > t.HeadForward {
		severity := math.Min(1, drift/(t.HeadForward*severitySpan))
		penalty += severity * weightLean
		kind, label := KindLeanRight, "Leaning right"
		if offset < 0 {
			kind, label = KindLeanLeft, "Leaning left"
		}
		issues = append(issues, Issue{Kind: kind, Label: label, Deviation: drift})
	}

	// Shoulder tilt, only when the tilt grew past what calibration captured.
	if tilt := math.Abs(current.ShoulderTilt); tilt > t.ShoulderTilt {
		if tilt-math.Abs(baseline.ShoulderTilt) > shoulderTiltBaselineGuard {
			severity := math.Min(1, tilt/(t.ShoulderTilt*severitySpan))
			penalty += severity * weightShoulderTilt
			issues = append(issues, Issue{Kind: KindShoulderTilt, Label: "Shoulders uneven", Deviation: tilt})
		}
	}

	// Forward lean via apparent face width. Disabled entirely unless face
	// metrics were available both now and at calibration time.
	if current.FaceForwardRatio > 0 && baseline.FaceForwardRatio > 0 {
		if fwd := current.FaceForwardRatio - baseline.FaceForwardRatio; fwd > forwardLeanTrigger {
			severity := math.Min(1, fwd/forwardLeanSeverityScale)
			penalty += severity * weightForwardLean
			issues = append(issues, Issue{Kind: KindForwardLean, Label: "Leaning forward", Deviation: fwd})
		}
	}

	score := 100 - int(math.Round(penalty))
	if score < 0 {
		score = 0
	}
	return issues, score
}
