package recording

import (
	"time"

	"github.com/claude/strongsight/internal/counter"
)

// ReplaySummary is the outcome of running stored frames through a counter.
type ReplaySummary struct {
	// Frames counts display frames, not stored rows.
	Frames   int
	Tracked  int
	Skipped  int
	Reps     []Rep
	Duration time.Duration
}

// Rep is a counted repetition and where in the recording it completed.
type Rep struct {
	counter.RepEvent
	At time.Duration
}

// Replay feeds frames, in order, through c. Each stored result is processed
// once per display frame it was shown for, as the live loop did.
func Replay(frames []Frame, c *counter.Counter) ReplaySummary {
	var sum ReplaySummary
	for _, f := range frames {
		for range max(f.Shown, 1) {
			out := c.Process(f.Landmarks)
			sum.Frames++
			switch out.Status {
			case counter.Tracking:
				sum.Tracked++
			case counter.Skipped:
				sum.Skipped++
			}
			if out.Rep != nil {
				sum.Reps = append(sum.Reps, Rep{RepEvent: *out.Rep, At: f.Timestamp})
			}
		}
	}
	if n := len(frames); n > 1 {
		sum.Duration = frames[n-1].Timestamp - frames[0].Timestamp
	}
	return sum
}
