package counter

import "github.com/claude/strongsight/internal/pose"

// KeyJoints are the joints the squat heuristic depends on: shoulders, hips,
// knees, ankles.
var KeyJoints = [8]int{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
	pose.LeftAnkle, pose.RightAnkle,
}

// Gate filters out frames until the pose has been clearly visible for a
// number of frames. A qualifying frame raises the stability count by one and
// a failing frame lowers it by one (never below zero), so a single bad frame
// does not reset a long stable run.
type Gate struct {
	t      Thresholds
	stable int
}

// Observe scores one frame and reports how many key joints were visible and
// whether the gate is open. The set must contain every key joint.
func (g *Gate) Observe(set pose.LandmarkSet) (visible int, open bool) {
	for _, i := range KeyJoints {
		if set[i].Visibility > g.t.Visibility {
			visible++
		}
	}
	if visible >= g.t.MinVisibleJoints {
		g.stable++
	} else {
		g.stable = max(g.stable-1, 0)
	}
	return visible, g.stable >= g.t.RequiredStableFrames
}

// Stable returns the current stability count.
func (g *Gate) Stable() int {
	return g.stable
}
