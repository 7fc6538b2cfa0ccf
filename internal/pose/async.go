package pose

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is an image handed to a Detector. Whoever receives a Frame owns it
// and must Close it.
type Frame interface {
	Close() error
}

// Detector runs landmark inference on a single frame. ts is the stream
// timestamp of the frame; callers pass strictly increasing values.
// Detect must not close the frame.
type Detector[F Frame] interface {
	Detect(ctx context.Context, frame F, ts time.Duration) (*Result, error)
}

// RunnerStats counts what happened to submitted frames.
type RunnerStats struct {
	Submitted uint64
	Dropped   uint64
	Completed uint64
	Failed    uint64
}

type runnerCounters struct {
	submitted atomic.Uint64
	dropped   atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

func (c *runnerCounters) snapshot() RunnerStats {
	return RunnerStats{
		Submitted: c.submitted.Load(),
		Dropped:   c.dropped.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
	}
}

// stamper forces timestamps to be strictly increasing.
type stamper struct {
	last    time.Duration
	started bool
}

func (s *stamper) next(ts time.Duration) time.Duration {
	if s.started && ts <= s.last {
		ts = s.last + time.Millisecond
	}
	return ts
}

func (s *stamper) commit(ts time.Duration) {
	s.last = ts
	s.started = true
}

// infer runs one detection and publishes the outcome. Frames are released
// here whether or not detection succeeds.
func infer[F Frame](ctx context.Context, det Detector[F], latest *Latest, counters *runnerCounters, log *slog.Logger, frame F, ts time.Duration) {
	res, err := det.Detect(ctx, frame, ts)
	frame.Close()
	if err != nil {
		counters.failed.Add(1)
		if ctx.Err() == nil {
			log.Warn("pose detection failed", "timestamp", ts, "error", err)
		}
		return
	}
	if res == nil {
		res = &Result{}
	}
	res.Timestamp = ts
	res.CompletedAt = time.Now()
	latest.Store(res)
	counters.completed.Add(1)
}

type asyncRequest[F Frame] struct {
	frame F
	ts    time.Duration
}

// Async runs a Detector on its own goroutine. Submit never blocks: a frame
// offered while inference is in progress is dropped. Results land in the
// shared Latest slot, so readers always see the newest completed inference
// regardless of which frame produced it.
type Async[F Frame] struct {
	det    Detector[F]
	latest *Latest
	log    *slog.Logger

	reqs   chan asyncRequest[F]
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex // guards closed and stamps, and serializes sends with Close
	closed bool
	stamps stamper

	counters runnerCounters
}

// NewAsync starts the inference goroutine. Call Close to stop it.
func NewAsync[F Frame](det Detector[F], latest *Latest, log *slog.Logger) *Async[F] {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async[F]{
		det:    det,
		latest: latest,
		log:    log,
		reqs:   make(chan asyncRequest[F]),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go a.run(ctx)
	return a
}

func (a *Async[F]) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.reqs:
			infer(ctx, a.det, a.latest, &a.counters, a.log, req.frame, req.ts)
		}
	}
}

// Submit offers frame for inference and reports whether it was accepted.
// Ownership of frame passes to Async either way; rejected frames are closed
// immediately.
func (a *Async[F]) Submit(frame F, ts time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		frame.Close()
		return false
	}

	ts = a.stamps.next(ts)
	select {
	case a.reqs <- asyncRequest[F]{frame: frame, ts: ts}:
		a.stamps.commit(ts)
		a.counters.submitted.Add(1)
		return true
	default:
		a.counters.dropped.Add(1)
		frame.Close()
		return false
	}
}

// Stats returns a snapshot of the frame counters.
func (a *Async[F]) Stats() RunnerStats {
	return a.counters.snapshot()
}

// Close stops the inference goroutine and waits for any in-flight detection
// to finish. It is safe to call more than once.
func (a *Async[F]) Close() error {
	a.mu.Lock()
	a.closed = true
	a.cancel()
	a.mu.Unlock()

	<-a.done
	return nil
}

// Inline runs detection synchronously inside Submit. It serves the
// single-shot running mode, where the caller accepts waiting on inference.
type Inline[F Frame] struct {
	det    Detector[F]
	latest *Latest
	log    *slog.Logger

	stamps   stamper
	counters runnerCounters
}

// NewInline returns a synchronous runner.
func NewInline[F Frame](det Detector[F], latest *Latest, log *slog.Logger) *Inline[F] {
	return &Inline[F]{det: det, latest: latest, log: log}
}

// Submit detects landmarks on frame, publishes the result and closes frame.
func (in *Inline[F]) Submit(frame F, ts time.Duration) bool {
	ts = in.stamps.next(ts)
	in.stamps.commit(ts)
	in.counters.submitted.Add(1)
	infer(context.Background(), in.det, in.latest, &in.counters, in.log, frame, ts)
	return true
}

// Stats returns a snapshot of the frame counters.
func (in *Inline[F]) Stats() RunnerStats {
	return in.counters.snapshot()
}

// Close is a no-op; Inline holds no goroutine.
func (in *Inline[F]) Close() error {
	return nil
}
