package counter

import (
	"math"

	"github.com/claude/strongsight/internal/pose"
)

// JointAngle returns the interior angle at b formed by the segments b→a and
// b→c, in degrees within [0,180]. Only X and Y are used.
func JointAngle(a, b, c pose.Landmark) float64 {
	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(rad * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

// legs lists hip, knee, ankle for the left then the right leg.
var legs = [2][3]int{
	{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee, pose.RightAnkle},
}

// Measurement is the per-frame geometry the squat state machine runs on.
type Measurement struct {
	LeftKnee  float64
	RightKnee float64
	// ShoulderY and HipY are averages of the left and right joints.
	ShoulderY float64
	HipY      float64
}

// Measure computes knee angles and average shoulder/hip heights. The caller
// must have checked that every key joint is present.
func Measure(set pose.LandmarkSet) Measurement {
	var knees [2]float64
	for i, leg := range legs {
		knees[i] = JointAngle(set[leg[0]], set[leg[1]], set[leg[2]])
	}
	return Measurement{
		LeftKnee:  knees[0],
		RightKnee: knees[1],
		ShoulderY: (set[pose.LeftShoulder].Y + set[pose.RightShoulder].Y) / 2,
		HipY:      (set[pose.LeftHip].Y + set[pose.RightHip].Y) / 2,
	}
}

// deep reports the bottom of a squat: both knees bent past the down angle
// and the hips dropped measurably below the shoulders.
func (m Measurement) deep(t Thresholds) bool {
	return m.LeftKnee < t.DownAngle && m.RightKnee < t.DownAngle &&
		m.HipY > m.ShoulderY+t.HipDropMargin
}

// extended reports both legs near full extension.
func (m Measurement) extended(t Thresholds) bool {
	return m.LeftKnee > t.UpAngle && m.RightKnee > t.UpAngle
}
