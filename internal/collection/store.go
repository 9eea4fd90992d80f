// Package collection holds the local mirror of the remote history: an ordered,
// deduplicated sequence of records plus its pagination state.
package collection

import (
	"sort"

	"queuepanel/internal/model"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"
)

// Insertion a record inserted at Index. Insertions returned by one call are valid
// when applied in order.
type Insertion struct {
	Index  int          `json:"index"`
	Record model.Record `json:"record"`
}

// Removal a record removed from Index. Removals are ordered so that applying them
// in order keeps every index valid.
type Removal struct {
	Index int   `json:"index"`
	ID    int64 `json:"id"`
}

type entry struct {
	rec model.Record
	key ordering.Key
}

// Store the local history mirror.
//
// Invariants: the sequence is sorted by ordering key in the direction recorded in the
// pagination params, and no id appears twice. Store is not safe for concurrent use;
// the coordinator owns it and serializes access.
type Store struct {
	seq   []entry
	ids   map[int64]struct{}
	total *int64
	state pagination.State
}

// New creates an empty store for params
func New(params pagination.Params) *Store {
	s := &Store{}
	s.ResetFor(params)
	return s
}

// ResetFor clears the sequence, the id set and the total, and starts a fresh walk for params
func (s *Store) ResetFor(params pagination.Params) {
	s.seq = nil
	s.ids = make(map[int64]struct{})
	s.total = nil
	s.state = pagination.State{
		IsLoading: false,
		HasMore:   true,
		Next:      nil,
		Params:    params.Normalize(),
	}
}

// MergeInsert inserts every record whose id is not yet known at the position its
// ordering key dictates in dir. The batch is re-sorted first since the transport's
// order is not trusted. If dir differs from the recorded direction the sequence is
// re-oriented within the same call.
func (s *Store) MergeInsert(records []model.Record, dir ordering.Direction) []Insertion {
	if !dir.Valid() {
		dir = s.state.Params.Direction
	}
	if dir != s.state.Params.Direction {
		s.reorient(dir)
	}
	if len(records) == 0 {
		return nil
	}

	batch := make([]entry, 0, len(records))
	for _, r := range records {
		batch = append(batch, entry{rec: r, key: ordering.KeyOf(r)})
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return dir.Before(batch[i].key, batch[j].key)
	})

	var inserted []Insertion
	for _, e := range batch {
		if _, known := s.ids[e.rec.ID]; known {
			continue
		}
		i := sort.Search(len(s.seq), func(i int) bool {
			return dir.Before(e.key, s.seq[i].key)
		})
		s.seq = append(s.seq, entry{})
		copy(s.seq[i+1:], s.seq[i:])
		s.seq[i] = e
		s.ids[e.rec.ID] = struct{}{}
		inserted = append(inserted, Insertion{Index: i, Record: e.rec})
	}
	return inserted
}

// reorient reverses the sequence; with a strict total order the reversed sequence is
// exactly the sequence sorted in the opposite direction
func (s *Store) reorient(dir ordering.Direction) {
	for i, j := 0, len(s.seq)-1; i < j; i, j = i+1, j-1 {
		s.seq[i], s.seq[j] = s.seq[j], s.seq[i]
	}
	s.state.Params.Direction = dir
}

// AdvanceCursor records where the next page starts. The transport's continuation is
// preferred; otherwise a cursor is synthesized from the last record of the page in
// walk order. A page made only of duplicates still advances.
func (s *Store) AdvanceCursor(page *model.Page) {
	if page == nil {
		return
	}
	params := s.state.Params
	switch {
	case page.Continuation != "":
		next := pagination.Cursor{Params: params, Continuation: page.Continuation}
		s.state.Next = &next
	case len(page.Records) > 0:
		next := pagination.After(params, lastInWalk(page.Records, params.Direction))
		s.state.Next = &next
	}

	s.state.HasMore = page.HasMore
	if len(page.Records) == 0 && page.Continuation == "" {
		// nothing to continue from
		s.state.HasMore = false
	}
	s.SetTotal(page.Total)
}

func lastInWalk(records []model.Record, dir ordering.Direction) ordering.Key {
	last := ordering.KeyOf(records[0])
	for _, r := range records[1:] {
		if k := ordering.KeyOf(r); dir.Before(last, k) {
			last = k
		}
	}
	return last
}

// Remove drops the given ids. Removals come back highest index first.
func (s *Store) Remove(ids []int64) []Removal {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, known := s.ids[id]; known {
			drop[id] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return nil
	}

	removals := make([]Removal, 0, len(drop))
	kept := s.seq[:0]
	for i, e := range s.seq {
		if _, ok := drop[e.rec.ID]; ok {
			removals = append(removals, Removal{Index: i, ID: e.rec.ID})
			delete(s.ids, e.rec.ID)
			continue
		}
		kept = append(kept, e)
	}
	s.seq = kept

	for i, j := 0, len(removals)-1; i < j; i, j = i+1, j-1 {
		removals[i], removals[j] = removals[j], removals[i]
	}
	if s.total != nil {
		total := *s.total - int64(len(removals))
		if total < 0 {
			total = 0
		}
		s.total = &total
	}
	return removals
}

// SetTotal records a server-reported total; nil leaves the current value
func (s *Store) SetTotal(total *int64) {
	if total == nil {
		return
	}
	t := *total
	s.total = &t
}

// Records returns a copy of the ordered sequence
func (s *Store) Records() []model.Record {
	out := make([]model.Record, len(s.seq))
	for i, e := range s.seq {
		out[i] = e.rec
	}
	return out
}

// Keys returns the ordering keys of the sequence, in order
func (s *Store) Keys() []ordering.Key {
	out := make([]ordering.Key, len(s.seq))
	for i, e := range s.seq {
		out[i] = e.key
	}
	return out
}

// Contains reports whether id is known
func (s *Store) Contains(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len number of records held
func (s *Store) Len() int {
	return len(s.seq)
}

// Total server-reported total, nil when unknown
func (s *Store) Total() *int64 {
	if s.total == nil {
		return nil
	}
	total := *s.total
	return &total
}

// State returns a copy of the pagination state
func (s *Store) State() pagination.State {
	st := s.state
	if st.Next != nil {
		next := *st.Next
		st.Next = &next
	}
	return st
}

// Params the params of the current walk
func (s *Store) Params() pagination.Params {
	return s.state.Params
}

// Direction the direction the sequence is sorted in
func (s *Store) Direction() ordering.Direction {
	return s.state.Params.Direction
}

// SetLoading sets the loading flag
func (s *Store) SetLoading(loading bool) {
	s.state.IsLoading = loading
}

// ResetCursor drops the continuation so the next load starts from the first page,
// keeping the loaded records
func (s *Store) ResetCursor() {
	s.state.Next = nil
	s.state.HasMore = true
	s.state.IsLoading = false
}
