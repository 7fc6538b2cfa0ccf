package pose

import "sync/atomic"

// Latest is a single-slot container holding the newest inference result.
// One goroutine writes (the inference path), any number read (the render
// loop). Each Store replaces the previous result wholesale.
type Latest struct {
	v atomic.Pointer[latestEntry]
	n atomic.Uint64
}

type latestEntry struct {
	result *Result
	seq    uint64
}

// Store publishes r as the newest result.
func (l *Latest) Store(r *Result) {
	l.v.Store(&latestEntry{result: r, seq: l.n.Add(1)})
}

// Load returns the newest result and its sequence number. The sequence
// starts at 1 and grows by one per Store; it is 0 with a nil result until
// the first Store.
func (l *Latest) Load() (*Result, uint64) {
	e := l.v.Load()
	if e == nil {
		return nil, 0
	}
	return e.result, e.seq
}
