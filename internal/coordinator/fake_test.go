package coordinator

import (
	"context"
	"errors"
	"sort"
	"sync"

	"queuepanel/internal/model"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"
)

var errBoom = errors.New("connection reset")

// fakeHistory serves pages from an in-memory record set the way the remote queue
// does: filter, sort by the cursor direction, continue strictly after the cursor key
type fakeHistory struct {
	mu      sync.Mutex
	records []model.Record
	calls   []pagination.Cursor
	err     error
	gates   map[int]chan struct{} // call index -> released when closed
	started chan int
}

func newFakeHistory(records ...model.Record) *fakeHistory {
	return &fakeHistory{records: records, gates: make(map[int]chan struct{}), started: make(chan int, 64)}
}

func (f *fakeHistory) add(records ...model.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
}

func (f *fakeHistory) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// gate blocks the call with the given index until the returned channel is closed
func (f *fakeHistory) gate(call int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[call] = ch
	return ch
}

func (f *fakeHistory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeHistory) FetchPage(ctx context.Context, cursor pagination.Cursor) (*model.Page, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, cursor)
	gate := f.gates[idx]
	records := append([]model.Record(nil), f.records...)
	f.mu.Unlock()

	f.started <- idx
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return servePage(records, cursor), nil
}

func servePage(records []model.Record, cursor pagination.Cursor) *model.Page {
	dir := cursor.Direction
	var matched []model.Record
	for _, r := range records {
		k := ordering.KeyOf(r)
		if cursor.Since != nil && k.TimeMillis < cursor.Since.UnixMilli() {
			continue
		}
		if cursor.Until != nil && k.TimeMillis > cursor.Until.UnixMilli() {
			continue
		}
		if cursor.AfterID != nil {
			after := ordering.Key{TimeMillis: *cursor.AfterValue, ID: *cursor.AfterID}
			if !dir.Before(after, k) {
				continue
			}
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return dir.Before(ordering.KeyOf(matched[i]), ordering.KeyOf(matched[j]))
	})

	total := int64(len(records))
	page := &model.Page{Total: &total}
	limit := cursor.Limit
	if limit <= 0 || limit > len(matched) {
		limit = len(matched)
	}
	page.Records = matched[:limit]
	page.HasMore = len(matched) > limit
	return page
}

type fakeSnapshots struct {
	mu    sync.Mutex
	snap  model.LiveSnapshot
	err   error
	calls int
}

func (f *fakeSnapshots) set(snap model.LiveSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func (f *fakeSnapshots) FetchSnapshot(ctx context.Context) (*model.LiveSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap.Clone(), nil
}

// rec builds a record completed at the given epoch second
func rec(id int64, sec int64) model.Record {
	d := float64(id)
	return model.Record{
		ID:              id,
		Timestamp:       model.NumericTimestamp(float64(sec)),
		Status:          model.RecordStatusSuccess,
		DurationSeconds: &d,
	}
}

func ids(records []model.Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
