// Package counter counts squat repetitions from pose landmarks.
//
// Each frame passes a visibility gate, then both knee angles and the
// hip-to-shoulder drop drive a two-state UP/DOWN machine. A rep is counted
// on the DOWN→UP transition.
package counter

import (
	"fmt"

	"github.com/claude/strongsight/internal/pose"
)

// Status describes how far a frame got through the pipeline.
type Status int

const (
	// NoPose: no landmark set was available.
	NoPose Status = iota
	// Skipped: the set lacked one of the key joints.
	Skipped
	// Stabilizing: the visibility gate is still closed.
	Stabilizing
	// Tracking: angles were computed and the state machine ran.
	Tracking
)

func (s Status) String() string {
	switch s {
	case NoPose:
		return "no_pose"
	case Skipped:
		return "skipped"
	case Stabilizing:
		return "stabilizing"
	case Tracking:
		return "tracking"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// RepEvent is emitted when a rep completes.
type RepEvent struct {
	Count     int
	LeftKnee  float64
	RightKnee float64
}

// Frame is the per-frame output used for the overlay.
type Frame struct {
	Status Status
	// Visible is the number of key joints above the visibility threshold.
	Visible int
	// Stable is the gate's stability count after this frame.
	Stable int
	// Angles are only meaningful when Status is Tracking.
	LeftKnee  float64
	RightKnee float64
	Phase     Phase
	Count     int
	// Rep is set on the frame that completed a rep.
	Rep *RepEvent
}

// Counter holds the gate and the squat state for one process lifetime.
// It is not safe for concurrent use; the render loop owns it.
type Counter struct {
	t         Thresholds
	gate      Gate
	squat     Squat
	listeners []func(RepEvent)
}

// New creates a Counter with the given thresholds.
func New(t Thresholds) (*Counter, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	return &Counter{t: t, gate: Gate{t: t}}, nil
}

// OnRep registers fn to be called synchronously for every completed rep.
func (c *Counter) OnRep(fn func(RepEvent)) {
	c.listeners = append(c.listeners, fn)
}

// Process runs one frame through the pipeline. A nil or empty set means no
// pose result is available yet.
func (c *Counter) Process(set pose.LandmarkSet) Frame {
	out := Frame{
		Status: NoPose,
		Stable: c.gate.Stable(),
		Phase:  c.squat.Phase(),
		Count:  c.squat.Count(),
	}
	if len(set) == 0 {
		return out
	}
	if !set.Has(KeyJoints[:]...) {
		out.Status = Skipped
		return out
	}

	visible, open := c.gate.Observe(set)
	out.Visible = visible
	out.Stable = c.gate.Stable()
	if !open {
		out.Status = Stabilizing
		return out
	}

	m := Measure(set)
	out.Status = Tracking
	out.LeftKnee = m.LeftKnee
	out.RightKnee = m.RightKnee

	if c.squat.Step(m, c.t) {
		ev := RepEvent{Count: c.squat.Count(), LeftKnee: m.LeftKnee, RightKnee: m.RightKnee}
		out.Rep = &ev
		for _, fn := range c.listeners {
			fn(ev)
		}
	}
	out.Phase = c.squat.Phase()
	out.Count = c.squat.Count()
	return out
}

// Count returns the number of completed reps.
func (c *Counter) Count() int {
	return c.squat.Count()
}

// Phase returns the current squat phase.
func (c *Counter) Phase() Phase {
	return c.squat.Phase()
}

// Thresholds returns the configuration the counter runs with.
func (c *Counter) Thresholds() Thresholds {
	return c.t
}
