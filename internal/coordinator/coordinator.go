// Package coordinator keeps the local history mirror and the live queue state in
// step with the remote queue across three update channels: cursor pagination,
// periodic refresh and pushed lifecycle events.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"queuepanel/internal/collection"
	"queuepanel/internal/metrics"
	"queuepanel/internal/model"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"
	"queuepanel/internal/progress"
	"queuepanel/pkg/interfaces"
	"queuepanel/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultLockWindow how long non-forced refreshes are suppressed after a user interaction
const DefaultLockWindow = 2 * time.Second

// Options coordinator options
type Options struct {
	Params     pagination.Params
	LockWindow time.Duration
	Now        func() time.Time
}

// RefreshOptions controls the refresh guards
type RefreshOptions struct {
	Force      bool               // Ignore the post-interaction lock window
	SkipIfBusy bool               // No-op when another refresh is in flight
	Params     *pagination.Params // Params to refresh for; nil keeps the current ones
}

// Coordinator owns the collection store, the live snapshot and the derived metrics.
//
// All state is read and written under mu, which plays the role of the single logical
// thread: the lock is released only around fetches, so every merge observes a
// consistent sort direction. Superseded responses are recognised by the params
// generation they were requested under and dropped.
type Coordinator struct {
	history   interfaces.HistorySource
	snapshots interfaces.SnapshotSource

	lockWindow time.Duration
	now        func() time.Time

	mu          sync.Mutex
	store       *collection.Store
	live        *model.LiveSnapshot
	metrics     metrics.Snapshot
	selection   map[string]struct{}
	generation  uint64
	loadToken   uint64
	refreshing  int
	lockUntil   time.Time
	lastErr     error
	subscribers map[int]func(Update)
	nextSub     int
}

// New creates a coordinator over the given sources
func New(history interfaces.HistorySource, snapshots interfaces.SnapshotSource, opts Options) *Coordinator {
	if opts.LockWindow <= 0 {
		opts.LockWindow = DefaultLockWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	params := opts.Params.Normalize()

	c := &Coordinator{
		history:     history,
		snapshots:   snapshots,
		lockWindow:  opts.LockWindow,
		now:         opts.Now,
		store:       collection.New(params),
		live:        &model.LiveSnapshot{},
		selection:   make(map[string]struct{}),
		subscribers: make(map[int]func(Update)),
	}
	c.metrics = metrics.Derive(nil, c.live)
	return c
}

// Refresh fetches the first page of the current walk together with the live queue,
// replaces the queue state and merges the page.
//
// A non-forced refresh inside the lock window and a SkipIfBusy refresh while another
// one runs are no-ops. Transport errors are recorded in the last-error slot and
// returned; loaded data is kept.
func (c *Coordinator) Refresh(ctx context.Context, opts RefreshOptions) error {
	c.mu.Lock()
	if !opts.Force && c.now().Before(c.lockUntil) {
		c.mu.Unlock()
		logger.DebugCtx(ctx, "refresh suppressed by interaction lock window")
		return nil
	}
	if opts.SkipIfBusy && c.refreshing > 0 {
		c.mu.Unlock()
		logger.DebugCtx(ctx, "refresh already in flight, skipping")
		return nil
	}
	if opts.Params != nil {
		if requested := opts.Params.Normalize(); !requested.Equal(c.store.Params()) {
			c.resetLocked(requested)
		}
	}
	c.refreshing++
	gen := c.generation
	params := c.store.Params()
	c.mu.Unlock()

	first, newest, live, err := c.fetchFirst(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing--

	if err != nil {
		c.lastErr = transportError(err)
		logger.WarnCtx(ctx, "refresh failed: %v", err)
		return c.lastErr
	}

	c.live = carryProgress(c.live, live)
	update := Update{QueueChanged: true}
	if err := c.checkGeneration(gen); err != nil {
		logger.DebugCtx(ctx, "discarding refresh page: %v", err)
	} else {
		update.Insertions = c.store.MergeInsert(first.Records, params.Direction)
		// Loaded records stay, the walk restarts after the first page so records that
		// arrived between the first page and the loaded tail are reached again.
		// A load still in flight must not move the cursor past them.
		c.store.ResetCursor()
		c.store.AdvanceCursor(first)
		c.loadToken++
		if newest != nil {
			update.Insertions = append(update.Insertions, c.store.MergeInsert(newest.Records, params.Direction)...)
		}
	}

	c.pruneSelectionLocked()
	c.lastErr = nil
	c.recomputeLocked()
	c.emitLocked(update)
	logger.DebugCtx(ctx, "refresh merged %d records, %d running, %d pending",
		len(update.Insertions), len(live.Running), len(live.Pending))
	return nil
}

// fetchFirst fetches the first page, the live snapshot and, for ascending walks, the
// newest slice concurrently
func (c *Coordinator) fetchFirst(ctx context.Context, params pagination.Params) (first, newest *model.Page, live *model.LiveSnapshot, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page, err := c.history.FetchPage(gctx, pagination.First(params))
		if err != nil {
			return fmt.Errorf("failed to fetch first page: %w", err)
		}
		first = orEmpty(page)
		return nil
	})
	g.Go(func() error {
		snap, err := c.snapshots.FetchSnapshot(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch live snapshot: %w", err)
		}
		live = snap.Clone()
		return nil
	})
	if params.Direction == ordering.Asc {
		// an ascending walk reaches new records last, so the newest slice is fetched on its own
		g.Go(func() error {
			page, err := c.history.FetchPage(gctx, pagination.Newest(params))
			if err != nil {
				return fmt.Errorf("failed to fetch newest page: %w", err)
			}
			newest = orEmpty(page)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return first, newest, live, nil
}

// LoadMore fetches the next page of the walk and merges it. It returns the number of
// records inserted. Calls while a load is in flight or after the walk ended perform
// no fetch. Errors are logged and swallowed; the loading flag is always cleared.
func (c *Coordinator) LoadMore(ctx context.Context) int {
	c.mu.Lock()
	st := c.store.State()
	if st.IsLoading || !st.HasMore {
		c.mu.Unlock()
		return 0
	}
	c.store.SetLoading(true)
	c.loadToken++
	token := c.loadToken
	gen := c.generation
	cursor := pagination.First(st.Params)
	if st.Next != nil {
		cursor = *st.Next
	}
	c.mu.Unlock()

	defer c.finishLoad(token)

	page, err := c.history.FetchPage(ctx, cursor)
	if err != nil {
		logger.WarnCtx(ctx, "failed to load more history: %v", err)
		return 0
	}
	page = orEmpty(page)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkGeneration(gen); err != nil {
		logger.DebugCtx(ctx, "discarding page: %v", err)
		return 0
	}

	inserted := c.store.MergeInsert(page.Records, c.store.Direction())
	if c.loadToken == token {
		c.store.AdvanceCursor(page)
	}
	if len(inserted) > 0 {
		c.recomputeLocked()
	}
	c.emitLocked(Update{Insertions: inserted})
	return len(inserted)
}

// finishLoad clears the loading flag unless a reset or a newer load has taken it over
func (c *Coordinator) finishLoad(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadToken == token {
		c.store.SetLoading(false)
	}
}

// SyncLatest fetches the newest slice of history for the current filters and merges
// it into the current direction. Returns the number of records inserted.
func (c *Coordinator) SyncLatest(ctx context.Context) int {
	c.mu.Lock()
	gen := c.generation
	params := c.store.Params()
	c.mu.Unlock()

	page, err := c.history.FetchPage(ctx, pagination.Newest(params))
	if err != nil {
		logger.WarnCtx(ctx, "failed to sync latest history: %v", err)
		return 0
	}
	page = orEmpty(page)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkGeneration(gen); err != nil {
		logger.DebugCtx(ctx, "discarding newest page: %v", err)
		return 0
	}
	inserted := c.store.MergeInsert(page.Records, c.store.Direction())
	if len(inserted) > 0 {
		c.recomputeLocked()
	}
	c.emitLocked(Update{Insertions: inserted})
	return len(inserted)
}

// SetSort switches the walk direction: full reset, one page, and for ascending walks
// an extra newest-slice merge. Returns the number of records inserted.
func (c *Coordinator) SetSort(ctx context.Context, dir ordering.Direction) int {
	c.mu.Lock()
	params := c.store.Params()
	params.Direction = dir
	c.resetLocked(params)
	c.mu.Unlock()

	return c.reload(ctx, dir)
}

// SetDateRange changes the time filter; nil bounds are open. Same reset sequence as SetSort.
func (c *Coordinator) SetDateRange(ctx context.Context, since, until *time.Time) int {
	c.mu.Lock()
	params := c.store.Params()
	params.Since = copyTime(since)
	params.Until = copyTime(until)
	c.resetLocked(params)
	dir := params.Direction
	c.mu.Unlock()

	return c.reload(ctx, dir)
}

func (c *Coordinator) reload(ctx context.Context, dir ordering.Direction) int {
	n := c.LoadMore(ctx)
	if dir == ordering.Asc {
		n += c.SyncLatest(ctx)
	}
	return n
}

// HandleEvent applies one pushed lifecycle event. Progress events update the item's
// fraction and the metrics; status changes trigger a refresh that yields to one
// already in flight.
func (c *Coordinator) HandleEvent(ctx context.Context, ev model.LifecycleEvent) error {
	switch ev.Kind {
	case model.EventKindProgress:
		var payload model.ProgressPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode progress payload: %w", err)
		}
		if payload.ItemID == "" {
			return nil
		}
		fraction := progress.AggregateMap(payload.Reports)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.live.Progress == nil {
			c.live.Progress = make(map[string]float64)
		}
		c.live.Progress[payload.ItemID] = fraction
		c.recomputeLocked()
		c.emitLocked(Update{})
		return nil
	case model.EventKindStatusChanged:
		return c.Refresh(ctx, RefreshOptions{SkipIfBusy: true})
	default:
		logger.DebugCtx(ctx, "ignoring event kind %q", ev.Kind)
		return nil
	}
}

// NoteInteraction opens the lock window that suppresses non-forced refreshes
func (c *Coordinator) NoteInteraction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockUntil = c.now().Add(c.lockWindow)
}

// Params the params of the current walk
func (c *Coordinator) Params() pagination.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Params()
}

// LastError the last refresh error, nil after a successful refresh
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ReportError records a failure observed outside the refresh path, such as an intent
// that could not be dispatched. The next successful refresh clears it.
func (c *Coordinator) ReportError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

// resetLocked starts a new walk; every response requested before this point becomes stale
func (c *Coordinator) resetLocked(params pagination.Params) {
	c.generation++
	c.store.ResetFor(params)
	c.recomputeLocked()
	c.emitLocked(Update{Reset: true})
}

func (c *Coordinator) checkGeneration(gen uint64) error {
	if gen != c.generation {
		return fmt.Errorf("%w: generation %d, current %d", ErrStaleResponse, gen, c.generation)
	}
	return nil
}

func (c *Coordinator) recomputeLocked() {
	c.metrics = metrics.Derive(c.store.Records(), c.live)
}

// carryProgress keeps event-reported fractions of items that are still running when
// the new snapshot reports none for them
func carryProgress(prev, next *model.LiveSnapshot) *model.LiveSnapshot {
	if prev == nil || len(prev.Progress) == 0 {
		return next
	}
	for _, it := range next.Running {
		if _, reported := next.Progress[it.ID]; reported {
			continue
		}
		fraction, known := prev.Progress[it.ID]
		if !known {
			continue
		}
		if next.Progress == nil {
			next.Progress = make(map[string]float64)
		}
		next.Progress[it.ID] = fraction
	}
	return next
}

func orEmpty(page *model.Page) *model.Page {
	if page == nil {
		return &model.Page{}
	}
	return page
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
