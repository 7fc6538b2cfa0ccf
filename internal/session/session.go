// Package session runs the capture loop: read a frame, hand a copy to the
// pose runner, pick up the newest landmark result, count, draw, repeat.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/strongsight/internal/counter"
	"github.com/claude/strongsight/internal/overlay"
	"github.com/claude/strongsight/internal/pose"
)

// Frame is a captured image the loop can copy and measure.
type Frame[F any] interface {
	Clone() F
	Size() (width, height int)
	Close() error
}

// Source yields frames until it fails.
type Source[F any] interface {
	Read() (F, error)
	Close() error
}

// Runner accepts frames for pose inference. It takes ownership of every
// frame passed to Submit.
type Runner[F any] interface {
	Submit(frame F, ts time.Duration) bool
	Close() error
}

// Renderer shows a frame with its overlay and reports whether the user
// asked to quit.
type Renderer[F any] interface {
	Render(frame F, ov overlay.Overlay) (quit bool, err error)
	Close() error
}

// Recorder persists landmark results. Record is called for every displayed
// frame that has a pose, with the timestamp of the result shown; a repeated
// timestamp means the same result stayed on screen.
type Recorder interface {
	Record(ctx context.Context, ts time.Duration, set pose.LandmarkSet) error
	Close() error
}

// Stats summarizes a run.
type Stats struct {
	Frames int
	// Results counts distinct pose results shown.
	Results int
	// Recorded counts displayed frames written to the recorder.
	Recorded       int
	RecordFailures int
	Reps           int
	Duration       time.Duration
	// Reason says why the loop ended: "quit", "read_failed" or "cancelled".
	Reason string
}

// Session owns the loop's resources for one run.
type Session[F Frame[F]] struct {
	source   Source[F]
	runner   Runner[F]
	renderer Renderer[F]
	latest   *pose.Latest
	counter  *counter.Counter
	log      *slog.Logger

	recorder Recorder
	closers  []io.Closer
	now      func() time.Time
}

// Option configures a Session.
type Option func(*options)

type options struct {
	recorder Recorder
	closers  []io.Closer
	now      func() time.Time
}

// WithRecorder stores every new landmark result through rec.
func WithRecorder(rec Recorder) Option {
	return func(o *options) { o.recorder = rec }
}

// WithRelease adds resources closed after the runner, in order, when Run
// returns. The pose model goes here.
func WithRelease(closers ...io.Closer) Option {
	return func(o *options) { o.closers = append(o.closers, closers...) }
}

// WithClock replaces time.Now for stream timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New assembles a session. latest must be the slot runner publishes to.
func New[F Frame[F]](src Source[F], runner Runner[F], renderer Renderer[F], latest *pose.Latest, c *counter.Counter, log *slog.Logger, opts ...Option) *Session[F] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Session[F]{
		source:   src,
		runner:   runner,
		renderer: renderer,
		latest:   latest,
		counter:  c,
		log:      log,
		recorder: o.recorder,
		closers:  o.closers,
		now:      o.now,
	}
}

// Run loops until the quit key, a read failure or ctx cancellation, none of
// which is an error. Every resource handed to the session is closed before
// Run returns, whatever the exit path.
func (s *Session[F]) Run(ctx context.Context) (stats *Stats, err error) {
	stats = &Stats{}
	start := s.now()

	defer func() {
		stats.Duration = s.now().Sub(start)
		if cerr := s.release(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("releasing resources: %w", cerr))
		}
	}()

	var seen uint64
	for {
		if ctx.Err() != nil {
			stats.Reason = "cancelled"
			s.log.Info("session cancelled")
			return stats, nil
		}

		frame, err := s.source.Read()
		if err != nil {
			stats.Reason = "read_failed"
			s.log.Error("failed to read frame", "error", err)
			return stats, nil
		}
		stats.Frames++

		s.runner.Submit(frame.Clone(), s.now().Sub(start))

		res, seq := s.latest.Load()
		set, ok := res.First()
		if ok {
			if seq != seen {
				stats.Results++
			}
			s.record(ctx, res.Timestamp, set, stats)
		}
		seen = seq

		out := s.counter.Process(set)
		if out.Rep != nil {
			stats.Reps++
		}

		w, h := frame.Size()
		quit, err := s.renderer.Render(frame, overlay.Build(set, w, h, out))
		frame.Close()
		if err != nil {
			return stats, fmt.Errorf("rendering frame %d: %w", stats.Frames, err)
		}
		if quit {
			stats.Reason = "quit"
			return stats, nil
		}
	}
}

func (s *Session[F]) record(ctx context.Context, ts time.Duration, set pose.LandmarkSet, stats *Stats) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, ts, set); err != nil {
		stats.RecordFailures++
		s.log.Warn("recording landmarks failed", "timestamp", ts, "error", err)
		return
	}
	stats.Recorded++
}

// release closes the runner first so no inference is in flight when the
// model and the camera go away.
func (s *Session[F]) release() error {
	var errs []error
	if err := s.runner.Close(); err != nil {
		errs = append(errs, fmt.Errorf("runner: %w", err))
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}
	if err := s.renderer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("renderer: %w", err))
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("recorder: %w", err))
		}
	}
	return errors.Join(errs...)
}
