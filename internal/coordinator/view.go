package coordinator

import (
	"queuepanel/internal/collection"
	"queuepanel/internal/metrics"
	"queuepanel/internal/model"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"
)

// Update describes one change to the mirrored state. A renderer applies Reset first,
// then Removals and Insertions in order; every index is valid at the moment it is applied.
type Update struct {
	Reset        bool                   `json:"reset,omitempty"` // Sequence cleared, render from scratch
	Removals     []collection.Removal   `json:"removals,omitempty"`
	Insertions   []collection.Insertion `json:"insertions,omitempty"`
	QueueChanged bool                   `json:"queue_changed,omitempty"` // Live queue replaced or edited locally
	Direction    ordering.Direction     `json:"direction"`
	Metrics      metrics.Snapshot       `json:"metrics"`
}

// Empty reports whether the update carries no structural change
func (u Update) Empty() bool {
	return !u.Reset && !u.QueueChanged && len(u.Removals) == 0 && len(u.Insertions) == 0
}

// View a consistent copy of the coordinator state
type View struct {
	Records    []model.Record      `json:"records"`
	Total      *int64              `json:"total,omitempty"`
	Pagination pagination.State    `json:"pagination"`
	Live       *model.LiveSnapshot `json:"live"`
	Metrics    metrics.Snapshot    `json:"metrics"`
	Selection  []string            `json:"selection"`
	Refreshing bool                `json:"refreshing"`
	LastError  string              `json:"last_error,omitempty"`
}

// View returns a copy of the current state
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Records:    c.store.Records(),
		Total:      c.store.Total(),
		Pagination: c.store.State(),
		Live:       c.live.Clone(),
		Metrics:    c.metrics,
		Selection:  c.selectionLocked(),
		Refreshing: c.refreshing > 0,
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	return v
}

// Metrics the current derived metrics
func (c *Coordinator) Metrics() metrics.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Subscribe registers fn for every update and returns a function that removes it.
// fn runs while the coordinator state is locked and must not call back into the
// coordinator.
func (c *Coordinator) Subscribe(fn func(Update)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Coordinator) emitLocked(u Update) {
	u.Direction = c.store.Direction()
	u.Metrics = c.metrics
	for _, fn := range c.subscribers {
		fn(u)
	}
}
