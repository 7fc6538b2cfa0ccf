// Package pose holds the landmark data model produced by a pose model and the
// plumbing that moves results from inference to the render loop.
package pose

import "time"

// Landmark indices of the 33-point BlazePose topology.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Landmark is a single body point. X and Y are normalized to the frame
// (top-left origin, so larger Y is lower on screen). Z is relative depth and
// is carried through but not interpreted.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// LandmarkSet is one detected person, indexed by the constants above.
// A model may return fewer points than NumLandmarks for a degenerate result.
type LandmarkSet []Landmark

// Has reports whether every index is present in the set.
func (s LandmarkSet) Has(indices ...int) bool {
	for _, i := range indices {
		if i < 0 || i >= len(s) {
			return false
		}
	}
	return true
}

// Connection is a skeleton segment between two landmark indices.
type Connection struct {
	From int
	To   int
}

// Skeleton lists the segments drawn over the body: arms, shoulder and hip
// lines, torso, legs and feet.
var Skeleton = []Connection{
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, RightShoulder},
	{LeftHip, RightHip},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle},
	{RightHip, RightKnee}, {RightKnee, RightAnkle},
	{LeftAnkle, LeftHeel}, {LeftHeel, LeftFootIndex},
	{RightAnkle, RightHeel}, {RightHeel, RightFootIndex},
}

// Result is the output of one inference call.
type Result struct {
	// Poses holds every person the model found. Only the first is consumed.
	Poses []LandmarkSet
	// Timestamp is the stream timestamp the frame was submitted with.
	Timestamp time.Duration
	// CompletedAt is when inference finished.
	CompletedAt time.Time
}

// First returns the first detected person. It is safe to call on a nil Result.
func (r *Result) First() (LandmarkSet, bool) {
	if r == nil || len(r.Poses) == 0 || len(r.Poses[0]) == 0 {
		return nil, false
	}
	return r.Poses[0], true
}
