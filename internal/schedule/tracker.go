package schedule

import (
	"context"
	"sync"
)

// Tracker tags week fetches with a generation so a response for a week the
// user already navigated away from is never applied.
type Tracker struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Begin starts a new generation, cancelling the fetch of the previous one.
// The returned context is cancelled by the next Begin or by Stop.
func (t *Tracker) Begin(parent context.Context) (context.Context, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.gen++
	return ctx, t.gen
}

// Current reports whether gen is still the latest generation
func (t *Tracker) Current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.gen
}

// Stop cancels any in-flight fetch
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Deliver runs fn if gen is still current and reports whether it ran. A
// concurrent Begin waits for fn, so a stale result is never delivered after
// a newer request started.
func (t *Tracker) Deliver(gen uint64, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return false
	}
	fn()
	return true
}
