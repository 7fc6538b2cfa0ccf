package recording

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/claude/strongsight/internal/pose"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poses.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleSet(y float64) pose.LandmarkSet {
	set := make(pose.LandmarkSet, pose.NumLandmarks)
	for i := range set {
		set[i] = pose.Landmark{X: 0.5, Y: y, Z: -0.1, Visibility: 0.875}
	}
	return set
}

// TestRecordAndReadBack verifies frames come back in timestamp order with
// their landmarks intact.
func TestRecordAndReadBack(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	id := uuid.New()
	rec, err := s.StartSession(ctx, id, "0", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if rec.ID() != id {
		t.Errorf("recorder id = %s, want %s", rec.ID(), id)
	}

	// Written out of order on purpose.
	if err := rec.Record(ctx, 66*time.Millisecond, sampleSet(0.5)); err != nil {
		t.Fatal(err)
	}
	if err := rec.Record(ctx, 33*time.Millisecond, sampleSet(0.25)); err != nil {
		t.Fatal(err)
	}

	frames, err := s.Frames(ctx, id)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	want := []Frame{
		{Timestamp: 33 * time.Millisecond, Landmarks: sampleSet(0.25), Shown: 1},
		{Timestamp: 66 * time.Millisecond, Landmarks: sampleSet(0.5), Shown: 1},
	}
	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

// TestRecordRepeatedTimestamp verifies a result recorded again keeps one row
// and counts how many display frames it was shown for.
func TestRecordRepeatedTimestamp(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	id := uuid.New()
	rec, err := s.StartSession(ctx, id, "0", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	rec.Record(ctx, time.Second, sampleSet(0.1))
	rec.Record(ctx, time.Second, sampleSet(0.9))
	rec.Record(ctx, time.Second, sampleSet(0.9))
	rec.Record(ctx, 2*time.Second, sampleSet(0.9))

	frames, err := s.Frames(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Shown != 3 || frames[0].Landmarks[0].Y != 0.9 {
		t.Errorf("first frame shown=%d y=%v, want shown=3 y=0.9", frames[0].Shown, frames[0].Landmarks[0].Y)
	}
	if frames[1].Shown != 1 {
		t.Errorf("second frame shown=%d, want 1", frames[1].Shown)
	}
}

// TestSessions verifies listing order, frame counts and the end marker.
func TestSessions(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first, second := uuid.New(), uuid.New()

	r1, err := s.StartSession(ctx, first, "0", base)
	if err != nil {
		t.Fatal(err)
	}
	r1.Record(ctx, 0, sampleSet(0.3))
	r1.Record(ctx, time.Millisecond, sampleSet(0.3))
	if err := r1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.StartSession(ctx, second, "clip.mp4", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != second || sessions[1].ID != first {
		t.Errorf("order = %s, %s; want newest first", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].Device != "clip.mp4" || sessions[0].Frames != 0 || sessions[0].EndedAt != nil {
		t.Errorf("open session = %+v", sessions[0])
	}
	if sessions[1].Frames != 2 || sessions[1].EndedAt == nil {
		t.Errorf("closed session = %+v", sessions[1])
	}
	if !sessions[1].StartedAt.Equal(base) {
		t.Errorf("started_at = %v, want %v", sessions[1].StartedAt, base)
	}

	latest, err := s.Latest(ctx)
	if err != nil || latest.ID != second {
		t.Errorf("Latest = %s (%v), want %s", latest.ID, err, second)
	}
}

// TestLatestEmpty verifies an empty file reports ErrNoSessions.
func TestLatestEmpty(t *testing.T) {
	s, _ := openTemp(t)
	if _, err := s.Latest(context.Background()); !errors.Is(err, ErrNoSessions) {
		t.Errorf("err = %v, want ErrNoSessions", err)
	}
}

// TestReopen verifies migrations are idempotent and data survives a reopen.
func TestReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	id := uuid.New()
	rec, err := s.StartSession(ctx, id, "0", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	rec.Record(ctx, 5*time.Millisecond, sampleSet(0.4))
	s.Close()

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()

	frames, err := again.Frames(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 {
		t.Errorf("got %d frames after reopen, want 1", len(frames))
	}
}

// TestRecordUnknownSession verifies foreign keys reject orphan frames.
func TestRecordUnknownSession(t *testing.T) {
	s, _ := openTemp(t)
	rec := &Recorder{store: s, id: uuid.New()}
	if err := rec.Record(context.Background(), 0, sampleSet(0.5)); err == nil {
		t.Error("expected error recording into a missing session")
	}
}
