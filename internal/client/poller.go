package client

import (
	"context"
	"sync"
	"time"

	"github.com/sharepad/sharepad/internal/logging"
)

// Poller drives the pull side of the sync protocol: every interval it
// reads the document state and, when the version moved past the local
// watermark, fetches the incremental history and hands both to the
// callbacks. All cursor state lives here, client-side; the server keeps
// none.
type Poller struct {
	api      *API
	interval time.Duration
	logger   logging.Logger

	mu          sync.Mutex
	lastVersion int64

	// OnState is called when the remote version is ahead of the
	// watermark. OnHistory receives the new entries, already in
	// strictly increasing version order.
	OnState   func(State)
	OnHistory func([]HistoryEntry)
}

func NewPoller(api *API, interval time.Duration, l logging.Logger) *Poller {
	return &Poller{
		api:      api,
		interval: interval,
		logger:   l.With("module", "poller"),
	}
}

// LastVersion returns the current watermark.
func (p *Poller) LastVersion() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastVersion
}

// Advance raises the watermark to version if it is ahead. Called after a
// local write so the own edit is not re-applied on the next tick.
func (p *Poller) Advance(version int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if version > p.lastVersion {
		p.lastVersion = version
	}
}

// PollOnce performs a single protocol round. Transient failures are
// returned to the caller; the fixed-interval loop simply retries on the
// next tick.
func (p *Poller) PollOnce(ctx context.Context) error {
	state, err := p.api.PollState(ctx)
	if err != nil {
		return err
	}

	last := p.LastVersion()
	if state.Version <= last {
		return nil
	}

	entries, err := p.api.PollHistory(ctx, last)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p.Advance(e.Version)
	}
	p.Advance(state.Version)

	if p.OnHistory != nil && len(entries) > 0 {
		p.OnHistory(entries)
	}
	if p.OnState != nil {
		p.OnState(state)
	}
	return nil
}

// Run polls on the fixed interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				p.logger.Warn(ctx, "poll failed", "error", err)
			}
		}
	}
}
