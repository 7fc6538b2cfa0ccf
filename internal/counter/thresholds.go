package counter

import "fmt"

// Thresholds are the tuning knobs of the squat heuristic.
type Thresholds struct {
	// Visibility is the score a key joint must exceed to count as visible.
	Visibility float64
	// MinVisibleJoints is how many of the eight key joints must be visible
	// for a frame to qualify.
	MinVisibleJoints int
	// RequiredStableFrames is the stability count needed before angles are
	// evaluated.
	RequiredStableFrames int
	// DownAngle: both knees must be bent below this (degrees) to enter DOWN.
	DownAngle float64
	// UpAngle: both knees must extend beyond this (degrees) to return UP.
	UpAngle float64
	// HipDropMargin is how far (normalized) the average hip must sit below
	// the average shoulder to enter DOWN.
	HipDropMargin float64
}

// DefaultThresholds returns the empirically tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Visibility:           0.4,
		MinVisibleJoints:     6,
		RequiredStableFrames: 4,
		DownAngle:            80,
		UpAngle:              160,
		HipDropMargin:        0.1,
	}
}

// Validate rejects combinations that would make the counter unusable.
func (t Thresholds) Validate() error {
	if t.Visibility < 0 || t.Visibility >= 1 {
		return fmt.Errorf("visibility threshold %v must be in [0,1)", t.Visibility)
	}
	if t.MinVisibleJoints < 1 || t.MinVisibleJoints > len(KeyJoints) {
		return fmt.Errorf("min visible joints %d must be between 1 and %d", t.MinVisibleJoints, len(KeyJoints))
	}
	if t.RequiredStableFrames < 1 {
		return fmt.Errorf("required stable frames %d must be at least 1", t.RequiredStableFrames)
	}
	if t.DownAngle <= 0 || t.UpAngle > 180 {
		return fmt.Errorf("angles must lie in (0,180], got down=%v up=%v", t.DownAngle, t.UpAngle)
	}
	if t.DownAngle >= t.UpAngle {
		return fmt.Errorf("down angle %v must be below up angle %v", t.DownAngle, t.UpAngle)
	}
	if t.HipDropMargin < 0 {
		return fmt.Errorf("hip drop margin %v must not be negative", t.HipDropMargin)
	}
	return nil
}
