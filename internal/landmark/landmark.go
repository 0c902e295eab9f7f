// Package landmark defines the skeletal landmark data the posture engine
// consumes and the provider capability that supplies it. Camera capture and
// the pose/face detection model live outside this module; a provider adapts
// whatever detector is in use to the fixed landmark names below.
package landmark

// Landmark is a single named 2-D point in normalized image coordinates with
// a detector-reported visibility in [0,1]. Origin and scale are defined by
// the upstream detector and are opaque here.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// FaceLandmarks are the optional face-mesh points used for the tilt and
// forward-lean metrics. Detectors without a face model simply omit them.
type FaceLandmarks struct {
	Forehead   Landmark `json:"forehead"`
	Chin       Landmark `json:"chin"`
	LeftCheek  Landmark `json:"left_cheek"`
	RightCheek Landmark `json:"right_cheek"`
}

// Snapshot is one capture of the named landmarks required for metric
// extraction. It is created once per detection cycle, treated as immutable,
// and not retained beyond a single extraction call.
type Snapshot struct {
	Nose          Landmark `json:"nose"`
	LeftEar       Landmark `json:"left_ear"`
	RightEar      Landmark `json:"right_ear"`
	LeftShoulder  Landmark `json:"left_shoulder"`
	RightShoulder Landmark `json:"right_shoulder"`

	Face *FaceLandmarks `json:"face,omitempty"`
}
