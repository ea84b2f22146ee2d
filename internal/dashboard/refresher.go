// Package dashboard owns the polled snapshots backing the dashboard page:
// the pending-articles table and the manual-articles queue, refreshed on a
// single repeating timer that pauses while no page is visible.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-media-monitoring-ui/internal/connectors/agent"
)

// PendingSnapshot is the most recently applied pending-articles fetch.
type PendingSnapshot struct {
	Articles   []agent.PendingArticle `json:"articles"`
	FetchedAt  time.Time              `json:"fetched_at"`
	Error      string                 `json:"error,omitempty"`
	Generation uint64                 `json:"generation"`
}

// ManualSnapshot is the most recently applied manual-articles fetch.
type ManualSnapshot struct {
	Articles   []agent.ManualArticle `json:"articles"`
	FetchedAt  time.Time             `json:"fetched_at"`
	Error      string                `json:"error,omitempty"`
	Generation uint64                `json:"generation"`
}

// Refresher periodically re-fetches both article lists from the agent
// backend. Every issued fetch takes a generation number; a completed fetch
// is only applied when nothing newer has been applied already, so a slow
// response can never clobber the result of a later request.
type Refresher struct {
	client   *agent.Client
	interval time.Duration

	pendingGen atomic.Uint64
	manualGen  atomic.Uint64

	mu      sync.RWMutex
	visible bool
	pending PendingSnapshot
	manual  ManualSnapshot

	kick chan struct{}
}

func NewRefresher(client *agent.Client, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		client:   client,
		interval: interval,
		visible:  true,
		kick:     make(chan struct{}, 1),
	}
}

// Run drives the repeating timer until ctx is cancelled. Ticks are skipped
// while hidden; a kick resets the timer and refreshes immediately.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if r.Visible() {
		r.RefreshAll(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.Visible() {
				r.RefreshAll(ctx)
			}
		case <-r.kick:
			ticker.Reset(r.interval)
			r.RefreshAll(ctx)
		}
	}
}

// SetVisible records a page visibility transition. Becoming visible kicks an
// immediate refresh and restarts the timer; becoming hidden stops fetching
// until the next transition.
func (r *Refresher) SetVisible(visible bool) {
	r.mu.Lock()
	changed := r.visible != visible
	r.visible = visible
	r.mu.Unlock()

	if changed && visible {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

func (r *Refresher) Visible() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visible
}

func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// RefreshAll fetches both lists back to back on the caller's goroutine.
func (r *Refresher) RefreshAll(ctx context.Context) {
	r.RefreshPending(ctx)
	r.RefreshManual(ctx)
}

// RefreshPending issues a pending-articles fetch and applies the result
// unless a newer fetch has landed in the meantime.
func (r *Refresher) RefreshPending(ctx context.Context) {
	gen := r.pendingGen.Add(1)
	items, err := r.client.PendingArticles(ctx)
	r.applyPending(gen, items, err)
}

// RefreshManual issues a manual-articles fetch and applies the result
// unless a newer fetch has landed in the meantime.
func (r *Refresher) RefreshManual(ctx context.Context) {
	gen := r.manualGen.Add(1)
	items, err := r.client.ManualArticles(ctx)
	r.applyManual(gen, items, err)
}

// RefreshPendingAfter schedules a one-shot pending refresh, used after a
// submission or report run so server-side queue changes become visible.
func (r *Refresher) RefreshPendingAfter(delay time.Duration) {
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.RefreshPending(ctx)
	})
}

// RefreshManualAfter schedules a one-shot manual-queue refresh, used after
// batch processing so server-side removals become visible.
func (r *Refresher) RefreshManualAfter(delay time.Duration) {
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.RefreshManual(ctx)
	})
}

// Pending returns the current pending snapshot.
func (r *Refresher) Pending() PendingSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.pending
	out.Articles = append([]agent.PendingArticle(nil), r.pending.Articles...)
	return out
}

// Manual returns the current manual snapshot.
func (r *Refresher) Manual() ManualSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.manual
	out.Articles = append([]agent.ManualArticle(nil), r.manual.Articles...)
	return out
}

func (r *Refresher) applyPending(gen uint64, items []agent.PendingArticle, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen <= r.pending.Generation {
		// A newer fetch already applied; this response is stale.
		return
	}
	r.pending.Generation = gen
	r.pending.FetchedAt = time.Now().UTC()
	if err != nil {
		// Keep the last good list on screen, surface the error alongside.
		r.pending.Error = err.Error()
		return
	}
	r.pending.Error = ""
	r.pending.Articles = items
}

func (r *Refresher) applyManual(gen uint64, items []agent.ManualArticle, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen <= r.manual.Generation {
		return
	}
	r.manual.Generation = gen
	r.manual.FetchedAt = time.Now().UTC()
	if err != nil {
		r.manual.Error = err.Error()
		return
	}
	r.manual.Error = ""
	r.manual.Articles = items
}
