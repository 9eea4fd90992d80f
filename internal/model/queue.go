package model

import (
	"time"
)

// Item an entry of the live queue (running or pending)
type Item struct {
	ID          string    `json:"id"`
	Number      int       `json:"number"` // Queue position as reported by the remote queue
	Name        string    `json:"name,omitempty"`
	CategoryKey string    `json:"category_key,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Row a persisted (saved) queue row
type Row struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	CategoryKey string `json:"category_key,omitempty"`
	Position    int    `json:"position"`
}

// LiveSnapshot the queue-side state, replaced wholesale on every refresh
type LiveSnapshot struct {
	Paused    bool               `json:"paused"`
	Running   []Item             `json:"running"`
	Pending   []Item             `json:"pending"`
	Persisted []Row              `json:"persisted"`
	Progress  map[string]float64 `json:"progress,omitempty"` // item id -> fraction in [0,1]
}

// Clone returns a deep copy so callers cannot mutate coordinator state
func (s *LiveSnapshot) Clone() *LiveSnapshot {
	if s == nil {
		return &LiveSnapshot{}
	}
	out := &LiveSnapshot{
		Paused:    s.Paused,
		Running:   append([]Item(nil), s.Running...),
		Pending:   append([]Item(nil), s.Pending...),
		Persisted: append([]Row(nil), s.Persisted...),
	}
	if s.Progress != nil {
		out.Progress = make(map[string]float64, len(s.Progress))
		for k, v := range s.Progress {
			out.Progress[k] = v
		}
	}
	return out
}

// PendingIDs returns the set of pending item ids
func (s *LiveSnapshot) PendingIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	if s == nil {
		return ids
	}
	for _, it := range s.Pending {
		ids[it.ID] = struct{}{}
	}
	return ids
}

// Page one page of history returned by a history source
type Page struct {
	Records      []Record `json:"records"`
	Total        *int64   `json:"total,omitempty"`
	Continuation string   `json:"next_continuation,omitempty"` // Opaque token, preferred over a synthesized cursor
	HasMore      bool     `json:"has_more"`
}
