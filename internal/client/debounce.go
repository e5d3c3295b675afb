package client

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of local edits into at most one action per
// quiescence window, bounding write amplification against the server.
type Debouncer struct {
	d time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(d time.Duration) *Debouncer {
	return &Debouncer{d: d}
}

// Trigger schedules fn to run after the quiescence window. A Trigger
// during the window restarts it and replaces the pending fn.
func (b *Debouncer) Trigger(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.d, fn)
}

// Stop cancels any pending action.
func (b *Debouncer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
