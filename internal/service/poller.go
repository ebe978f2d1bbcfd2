package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scoutline/scout-api/internal/core"
	"github.com/scoutline/scout-api/internal/domain/model"
)

const (
	// DefaultPollInterval is how often the poller considers refreshing.
	DefaultPollInterval = 30 * time.Second
	// DefaultFetchTimeout bounds a single snapshot fetch.
	DefaultFetchTimeout = 10 * time.Second
)

// Snapshot is one immutable view of an owner's jobs. Subscribers always
// receive their own deep copy.
type Snapshot struct {
	Jobs      []*model.ResearchJob
	FetchedAt time.Time
}

// clone returns a deep copy so callers can never mutate the poller's state.
func (s Snapshot) clone() Snapshot {
	jobs := make([]*model.ResearchJob, len(s.Jobs))
	for i, j := range s.Jobs {
		jobs[i] = j.Clone()
	}
	return Snapshot{Jobs: jobs, FetchedAt: s.FetchedAt}
}

// hasActive reports whether any held job is still pending or processing.
func (s Snapshot) hasActive() bool {
	for _, j := range s.Jobs {
		if j.Status.Active() {
			return true
		}
	}
	return false
}

// SnapshotFetch loads the current job set from the store.
type SnapshotFetch func(ctx context.Context) ([]*model.ResearchJob, error)

// RepoSnapshotFetch adapts a JobRepository listing into a SnapshotFetch for
// one owner.
func RepoSnapshotFetch(repo core.JobRepository, ownerID string) SnapshotFetch {
	return func(ctx context.Context) ([]*model.ResearchJob, error) {
		page, err := repo.List(ctx, ownerID, &model.JobListOptions{Limit: model.MaxJobListLimit})
		if err != nil {
			return nil, err
		}
		return page.Jobs, nil
	}
}

// SnapshotPollerOptions groups dependencies for SnapshotPoller.
type SnapshotPollerOptions struct {
	Fetch        SnapshotFetch // Required: snapshot source
	Interval     time.Duration // Optional: defaults to 30s
	FetchTimeout time.Duration // Optional: defaults to 10s
	Logger       *slog.Logger
}

// SnapshotPoller keeps a client-side snapshot of an owner's jobs in sync
// with the store. A single goroutine owns the snapshot; refreshes happen
// only while some held job is still active, the view is visible, or a
// caller forces one.
type SnapshotPoller struct {
	fetch        SnapshotFetch
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger

	// inFlight is the single-flight guard: an overlapping refresh is
	// dropped, never queued.
	inFlight      atomic.Bool
	visible       atomic.Bool
	refreshHidden atomic.Bool

	mu       sync.Mutex
	snapshot Snapshot
	hasData  bool
	lastErr  error
	subs     map[chan Snapshot]struct{}
}

// NewSnapshotPoller constructs a new SnapshotPoller.
func NewSnapshotPoller(opts SnapshotPollerOptions) (*SnapshotPoller, error) {
	if opts.Fetch == nil {
		return nil, errors.New("snapshot fetch is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "snapshot_poller")
	}

	p := &SnapshotPoller{
		fetch:        opts.Fetch,
		interval:     opts.Interval,
		fetchTimeout: opts.FetchTimeout,
		logger:       logger,
		subs:         make(map[chan Snapshot]struct{}),
	}
	p.visible.Store(true)
	return p, nil
}

// SetVisible records whether the consuming view is on screen. An invisible
// view skips scheduled refreshes unless RefreshInBackground is set.
func (p *SnapshotPoller) SetVisible(visible bool) {
	p.visible.Store(visible)
}

// SetRefreshInBackground lets scheduled refreshes continue while the view
// is hidden.
func (p *SnapshotPoller) SetRefreshInBackground(enabled bool) {
	p.refreshHidden.Store(enabled)
}

// Run polls until the context is cancelled. The first tick always fetches;
// later ticks fetch only while the refresh predicate holds. No fetch error
// escapes this loop. Returns nil on graceful shutdown (context.Canceled).
func (p *SnapshotPoller) Run(ctx context.Context) error {
	if p.logger != nil {
		p.logger.InfoContext(ctx, "starting snapshot poller", "interval", p.interval)
	}

	// No snapshot exists yet, so the first pass always fetches.
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.logger != nil {
				p.logger.InfoContext(ctx, "snapshot poller stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if !p.shouldRefresh() {
				continue
			}
			p.refresh(ctx)
		}
	}
}

// shouldRefresh applies the scheduled-tick predicate: visibility gating
// first, then the any-active check. A missing snapshot always refreshes.
func (p *SnapshotPoller) shouldRefresh() bool {
	if !p.visible.Load() && !p.refreshHidden.Load() {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasData {
		return true
	}
	return p.snapshot.hasActive()
}

// Refresh forces a fetch regardless of visibility or the active-job
// predicate. It still respects the single-flight guard: a refresh racing an
// in-flight fetch is dropped and the in-flight result wins.
func (p *SnapshotPoller) Refresh(ctx context.Context) {
	p.refresh(ctx)
}

func (p *SnapshotPoller) refresh(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	jobs, err := p.fetch(fetchCtx)
	if err != nil {
		p.recordError(ctx, err)
		return
	}

	snap := Snapshot{Jobs: jobs, FetchedAt: time.Now().UTC()}

	p.mu.Lock()
	p.snapshot = snap
	p.hasData = true
	p.lastErr = nil
	p.mu.Unlock()

	p.broadcast(snap)
}

// recordError keeps the last good snapshot and remembers why the refresh
// failed. The loop keeps ticking.
func (p *SnapshotPoller) recordError(ctx context.Context, err error) {
	p.mu.Lock()
	p.lastErr = fmt.Errorf("snapshot fetch: %w", err)
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.WarnContext(ctx, "snapshot fetch failed, keeping last snapshot", "error", err)
	}
}

// Snapshot returns a copy of the current snapshot and the last sync error.
// The error is nil after any successful refresh.
func (p *SnapshotPoller) Snapshot() (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot.clone(), p.lastErr
}

// Subscribe registers for snapshot updates. Each successful refresh sends
// one Snapshot copy; a slow subscriber only ever sees the latest value.
// The returned function unsubscribes and closes the channel.
func (p *SnapshotPoller) Subscribe() (func(), <-chan Snapshot) {
	ch := make(chan Snapshot, 1)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	unsub := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[ch]; !ok {
			return
		}
		delete(p.subs, ch)
		drainAndCloseSnapshots(ch)
	}

	return unsub, ch
}

// broadcast delivers a fresh copy to every subscriber, replacing any unread
// snapshot so the channel always holds the newest view.
func (p *SnapshotPoller) broadcast(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ch := range p.subs {
		select {
		case ch <- snap.clone():
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap.clone():
			default:
			}
		}
	}
}

func drainAndCloseSnapshots(ch chan Snapshot) {
	select {
	case <-ch:
	default:
	}
	close(ch)
}
