package recording

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/strongsight/internal/counter"
	"github.com/claude/strongsight/internal/pose"
)

// kneeBend builds a visible pose with both knees at deg and hips drop below
// the shoulders.
func kneeBend(deg, drop float64) pose.LandmarkSet {
	set := make(pose.LandmarkSet, pose.NumLandmarks)
	for i := range set {
		set[i].Visibility = 0.9
	}
	const shoulderY, shin = 0.3, 0.2
	rad := deg * math.Pi / 180
	hipY := shoulderY + drop
	legs := [][4]int{
		{pose.LeftShoulder, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		{pose.RightShoulder, pose.RightHip, pose.RightKnee, pose.RightAnkle},
	}
	for i, leg := range legs {
		x := 0.4 + 0.2*float64(i)
		set[leg[0]] = pose.Landmark{X: x, Y: shoulderY, Visibility: 0.9}
		set[leg[1]] = pose.Landmark{X: x, Y: hipY, Visibility: 0.9}
		set[leg[2]] = pose.Landmark{X: x, Y: hipY + shin, Visibility: 0.9}
		set[leg[3]] = pose.Landmark{X: x + shin*math.Sin(rad), Y: hipY + shin - shin*math.Cos(rad), Visibility: 0.9}
	}
	return set
}

// TestReplayFromStore records two squats and replays them through a fresh
// counter, the way strongsight-replay does.
func TestReplayFromStore(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	id := uuid.New()
	rec, err := s.StartSession(ctx, id, "0", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	standing, deep := kneeBend(175, 0.3), kneeBend(60, 0.45)
	sequence := []pose.LandmarkSet{standing, standing, standing, standing, deep, standing, deep, deep, standing}
	for i, set := range sequence {
		if err := rec.Record(ctx, time.Duration(i)*40*time.Millisecond, set); err != nil {
			t.Fatal(err)
		}
	}
	// A degenerate frame is stored as-is and skipped on replay.
	if err := rec.Record(ctx, 400*time.Millisecond, standing[:10]); err != nil {
		t.Fatal(err)
	}

	frames, err := s.Frames(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	c, err := counter.New(counter.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}

	sum := Replay(frames, c)
	if sum.Frames != 10 || sum.Skipped != 1 {
		t.Errorf("frames/skipped = %d/%d, want 10/1", sum.Frames, sum.Skipped)
	}
	if sum.Tracked != 6 {
		t.Errorf("tracked = %d, want 6", sum.Tracked)
	}
	if len(sum.Reps) != 2 {
		t.Fatalf("reps = %d, want 2", len(sum.Reps))
	}
	if sum.Reps[0].At != 200*time.Millisecond || sum.Reps[1].At != 320*time.Millisecond {
		t.Errorf("rep times = %v, %v; want 200ms, 320ms", sum.Reps[0].At, sum.Reps[1].At)
	}
	if sum.Reps[1].Count != 2 {
		t.Errorf("second rep count = %d, want 2", sum.Reps[1].Count)
	}
	if sum.Duration != 400*time.Millisecond {
		t.Errorf("duration = %v, want 400ms", sum.Duration)
	}
}

// TestReplayRepeatsShownFrames verifies a result shown for several display
// frames drives the stability gate that many times, so a slow model replays
// the same way it ran live.
func TestReplayRepeatsShownFrames(t *testing.T) {
	c, err := counter.New(counter.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	frames := []Frame{
		{Timestamp: 0, Landmarks: kneeBend(175, 0.3), Shown: 4},
		{Timestamp: 130 * time.Millisecond, Landmarks: kneeBend(60, 0.45), Shown: 4},
		{Timestamp: 260 * time.Millisecond, Landmarks: kneeBend(175, 0.3), Shown: 4},
	}

	sum := Replay(frames, c)
	if sum.Frames != 12 {
		t.Errorf("frames = %d, want 12", sum.Frames)
	}
	if sum.Tracked != 9 {
		t.Errorf("tracked = %d, want 9", sum.Tracked)
	}
	if len(sum.Reps) != 1 || sum.Reps[0].At != 260*time.Millisecond {
		t.Errorf("reps = %+v, want one rep at 260ms", sum.Reps)
	}
}

// TestReplayEmpty verifies an empty recording yields a zero summary.
func TestReplayEmpty(t *testing.T) {
	c, err := counter.New(counter.DefaultThresholds())
	if err != nil {
		t.Fatal(err)
	}
	if sum := Replay(nil, c); sum.Frames != 0 || len(sum.Reps) != 0 || sum.Duration != 0 {
		t.Errorf("summary = %+v, want zero", sum)
	}
}
