package coordinator

import (
	"sort"

	"queuepanel/internal/collection"
	"queuepanel/internal/model"
)

// Select adds pending item ids to the selection
func (c *Coordinator) Select(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			c.selection[id] = struct{}{}
		}
	}
}

// Deselect removes ids from the selection
func (c *Coordinator) Deselect(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.selection, id)
	}
}

// ClearSelection empties the selection
func (c *Coordinator) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = make(map[string]struct{})
}

// Selection returns the selected ids in pending-queue order
func (c *Coordinator) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionLocked()
}

func (c *Coordinator) selectionLocked() []string {
	out := make([]string, 0, len(c.selection))
	seen := make(map[string]struct{}, len(c.selection))
	for _, it := range c.live.Pending {
		if _, ok := c.selection[it.ID]; ok {
			out = append(out, it.ID)
			seen[it.ID] = struct{}{}
		}
	}
	// ids not in the queue yet, e.g. restored before the first refresh
	var rest []string
	for id := range c.selection {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// pruneSelectionLocked drops selected ids that are no longer pending
func (c *Coordinator) pruneSelectionLocked() {
	pending := c.live.PendingIDs()
	for id := range c.selection {
		if _, ok := pending[id]; !ok {
			delete(c.selection, id)
		}
	}
}

// ApplyLocalOrder reorders the pending queue to the proposed order before the server
// confirms it. Listed ids move to the front in the given order, the rest keep their
// relative order. Membership does not change so metrics are left as they are.
func (c *Coordinator) ApplyLocalOrder(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID := make(map[string]model.Item, len(c.live.Pending))
	for _, it := range c.live.Pending {
		byID[it.ID] = it
	}
	ordered := make([]model.Item, 0, len(c.live.Pending))
	placed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := placed[id]; dup {
			continue
		}
		placed[id] = struct{}{}
		ordered = append(ordered, it)
	}
	for _, it := range c.live.Pending {
		if _, ok := placed[it.ID]; !ok {
			ordered = append(ordered, it)
		}
	}
	for i := range ordered {
		ordered[i].Number = i + 1
	}
	c.live.Pending = ordered
	c.emitLocked(Update{QueueChanged: true})
}

// ApplyLocalRename renames a queue item or persisted row. Returns false when id is unknown.
func (c *Coordinator) ApplyLocalRename(id, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := false
	for i := range c.live.Pending {
		if c.live.Pending[i].ID == id {
			c.live.Pending[i].Name = name
			found = true
		}
	}
	for i := range c.live.Running {
		if c.live.Running[i].ID == id {
			c.live.Running[i].Name = name
			found = true
		}
	}
	for i := range c.live.Persisted {
		if c.live.Persisted[i].ID == id {
			c.live.Persisted[i].Name = name
			found = true
		}
	}
	if found {
		c.emitLocked(Update{QueueChanged: true})
	}
	return found
}

// ApplyLocalDelete removes pending items and persisted rows, returns how many were removed
func (c *Coordinator) ApplyLocalDelete(ids []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
		delete(c.selection, id)
	}

	removed := 0
	pending := c.live.Pending[:0]
	for _, it := range c.live.Pending {
		if _, ok := drop[it.ID]; ok {
			removed++
			continue
		}
		pending = append(pending, it)
	}
	c.live.Pending = pending

	persisted := c.live.Persisted[:0]
	for _, row := range c.live.Persisted {
		if _, ok := drop[row.ID]; ok {
			removed++
			continue
		}
		persisted = append(persisted, row)
	}
	c.live.Persisted = persisted

	if removed > 0 {
		c.recomputeLocked()
		c.emitLocked(Update{QueueChanged: true})
	}
	return removed
}

// RemoveHistory drops history records from the mirror
func (c *Coordinator) RemoveHistory(ids []int64) []collection.Removal {
	c.mu.Lock()
	defer c.mu.Unlock()

	removals := c.store.Remove(ids)
	if len(removals) > 0 {
		c.recomputeLocked()
		c.emitLocked(Update{Removals: removals})
	}
	return removals
}

// ApplyLocalPause sets the paused flag ahead of the server
func (c *Coordinator) ApplyLocalPause(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live.Paused == paused {
		return
	}
	c.live.Paused = paused
	c.emitLocked(Update{QueueChanged: true})
}
