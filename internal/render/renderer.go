// Package render applies coordinator updates to a list layout while holding the
// scroll anchor steady.
package render

import (
	"strconv"
	"sync"

	"queuepanel/internal/anchor"
	"queuepanel/internal/coordinator"
	"queuepanel/internal/metrics"
)

// Renderer mirrors the history sequence into a ListLayout
type Renderer struct {
	mu      sync.Mutex
	layout  *anchor.ListLayout
	keeper  *anchor.Keeper
	metrics metrics.Snapshot
	applied int
}

// New creates a renderer with the given row and viewport heights
func New(rowHeight, viewport float64) *Renderer {
	layout := anchor.NewListLayout(rowHeight, viewport)
	return &Renderer{layout: layout, keeper: anchor.NewKeeper(layout)}
}

// Attach subscribes the renderer to c and returns the unsubscribe function
func (r *Renderer) Attach(c *coordinator.Coordinator) func() {
	return c.Subscribe(r.Apply)
}

// Apply applies one update inside a stable-anchor section
func (r *Renderer) Apply(u coordinator.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(u)
}

// ApplyAll applies a batch of updates as one anchored mutation
func (r *Renderer) ApplyAll(updates []coordinator.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keeper.WithStableAnchor(func() {
		for _, u := range updates {
			r.applyLocked(u)
		}
	})
}

func (r *Renderer) applyLocked(u coordinator.Update) {
	r.metrics = u.Metrics
	r.applied++
	if u.Reset {
		r.layout.Reset()
	}
	if len(u.Removals) == 0 && len(u.Insertions) == 0 {
		return
	}
	r.keeper.WithStableAnchor(func() {
		for _, rm := range u.Removals {
			r.layout.Remove(rm.Index)
		}
		for _, ins := range u.Insertions {
			r.layout.Insert(ins.Index, Key(ins.Record.ID))
		}
	})
}

// Scroll sets the scroll position
func (r *Renderer) Scroll(top float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layout.Settle()
	r.layout.SetScrollTop(top)
}

// Frame what is currently on screen
type Frame struct {
	ScrollTop float64          `json:"scroll_top"`
	Rows      []string         `json:"rows"`
	Visible   []string         `json:"visible"`
	Metrics   metrics.Snapshot `json:"metrics"`
	Updates   int              `json:"updates"`
}

// Frame returns the current frame
func (r *Renderer) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Frame{
		ScrollTop: r.layout.ScrollTop(),
		Rows:      r.layout.Keys(),
		Visible:   r.layout.Visible(),
		Metrics:   r.metrics,
		Updates:   r.applied,
	}
}

// Key the row key for a history record id
func Key(id int64) string {
	return strconv.FormatInt(id, 10)
}
