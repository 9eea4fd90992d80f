// Package pagination describes history page requests and the continuation state
// carried between them.
package pagination

import (
	"time"

	"queuepanel/internal/ordering"
)

const (
	// DefaultLimit page size used when none is configured
	DefaultLimit = 50

	// DefaultSortField the field the remote queue sorts history by
	DefaultSortField = "completed_at"
)

// Params the user-controlled parameters that define which history is being walked.
// Changing any of them invalidates every cursor derived from the old value.
type Params struct {
	SortField string             `json:"sort_field"`
	Direction ordering.Direction `json:"sort_direction"`
	Limit     int                `json:"limit"`
	Since     *time.Time         `json:"since,omitempty"`
	Until     *time.Time         `json:"until,omitempty"`
}

// DefaultParams newest-first params with the default page size
func DefaultParams() Params {
	return Params{
		SortField: DefaultSortField,
		Direction: ordering.Desc,
		Limit:     DefaultLimit,
	}
}

// Normalize fills zero fields with defaults
func (p Params) Normalize() Params {
	if p.SortField == "" {
		p.SortField = DefaultSortField
	}
	if !p.Direction.Valid() {
		p.Direction = ordering.Desc
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// Equal reports whether two params select the same history walk
func (p Params) Equal(o Params) bool {
	return p.SortField == o.SortField &&
		p.Direction == o.Direction &&
		p.Limit == o.Limit &&
		timeEqual(p.Since, o.Since) &&
		timeEqual(p.Until, o.Until)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Cursor fully determines the next page request.
// AfterID / AfterValue are copied from the last record of the previous page,
// Continuation is the transport's own opaque token when it supplies one.
type Cursor struct {
	Params
	AfterID      *int64 `json:"after_id,omitempty"`
	AfterValue   *int64 `json:"after_value,omitempty"`
	Continuation string `json:"continuation,omitempty"`
}

// First returns the cursor for the first page of p
func First(p Params) Cursor {
	return Cursor{Params: p}
}

// Newest returns a first-page cursor that walks newest-first regardless of the
// direction in p, keeping p's filters
func Newest(p Params) Cursor {
	p.Direction = ordering.Desc
	return Cursor{Params: p}
}

// After returns a cursor continuing after the given key
func After(p Params, key ordering.Key) Cursor {
	id, value := key.ID, key.TimeMillis
	return Cursor{Params: p, AfterID: &id, AfterValue: &value}
}

// IsFirst reports whether the cursor requests the first page
func (c Cursor) IsFirst() bool {
	return c.AfterID == nil && c.AfterValue == nil && c.Continuation == ""
}

// State pagination state of the local mirror
type State struct {
	IsLoading bool    `json:"is_loading"`
	HasMore   bool    `json:"has_more"`
	Next      *Cursor `json:"next_cursor,omitempty"`
	Params    Params  `json:"params"`
}
