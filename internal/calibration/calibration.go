// Package calibration aggregates metric frames captured while the user holds
// a reference posture into a baseline, and persists that baseline.
package calibration

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/posture-data/postureguard/internal/metrics"
)

// MinSamples is the minimum number of usable frames a calibration run must
// produce before a baseline is accepted.
const MinSamples = 10

// ErrInsufficientSamples reports a calibration run that produced fewer than
// MinSamples usable frames. No baseline is written; any prior baseline is
// retained untouched.
var ErrInsufficientSamples = errors.New("calibration: insufficient usable frames")

// Calibrate averages the supplied frames into a baseline vector. It is a
// pure aggregation with no time dependency.
func Calibrate(frames []metrics.Vector) (metrics.Vector, error) {
	if len(frames) < MinSamples {
		return metrics.Vector{}, ErrInsufficientSamples
	}

	n := len(frames)
	col := make([]float64, n)
	mean := func(pick func(metrics.Vector) float64) float64 {
		for i, f := range frames {
			col[i] = pick(f)
		}
		return stat.Mean(col, nil)
	}

	return metrics.Vector{
		NoseToShoulderY:  mean(func(v metrics.Vector) float64 { return v.NoseToShoulderY }),
		NoseToShoulderX:  mean(func(v metrics.Vector) float64 { return v.NoseToShoulderX }),
		EarShoulderDist:  mean(func(v metrics.Vector) float64 { return v.EarShoulderDist }),
		ShoulderTilt:     mean(func(v metrics.Vector) float64 { return v.ShoulderTilt }),
		NoseToEarY:       mean(func(v metrics.Vector) float64 { return v.NoseToEarY }),
		FaceTilt:         mean(func(v metrics.Vector) float64 { return v.FaceTilt }),
		FaceForwardRatio: mean(func(v metrics.Vector) float64 { return v.FaceForwardRatio }),
		NoseY:            mean(func(v metrics.Vector) float64 { return v.NoseY }),
		MidEarY:          mean(func(v metrics.Vector) float64 { return v.MidEarY }),
		MidShoulderY:     mean(func(v metrics.Vector) float64 { return v.MidShoulderY }),
	}, nil
}
