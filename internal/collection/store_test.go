package collection

import (
	"testing"

	"queuepanel/internal/model"
	"queuepanel/internal/ordering"
	"queuepanel/internal/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int64, secs float64) model.Record {
	return model.Record{ID: id, Timestamp: model.NumericTimestamp(secs), Status: model.RecordStatusSuccess}
}

func ids(records []model.Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestStore_MergeInsertOrdersAndDedups(t *testing.T) {
	s := New(pagination.DefaultParams())

	inserted := s.MergeInsert([]model.Record{rec(1, 100), rec(3, 300), rec(2, 200)}, ordering.Desc)
	assert.Len(t, inserted, 3)
	assert.Equal(t, []int64{3, 2, 1}, ids(s.Records()))

	inserted = s.MergeInsert([]model.Record{rec(2, 200), rec(4, 250), rec(4, 250)}, ordering.Desc)
	require.Len(t, inserted, 1)
	assert.Equal(t, Insertion{Index: 1, Record: rec(4, 250)}, inserted[0])
	assert.Equal(t, []int64{3, 4, 2, 1}, ids(s.Records()))
	assert.True(t, s.Contains(4))
	assert.Equal(t, 4, s.Len())
}

func TestStore_InsertionsReplayInOrder(t *testing.T) {
	s := New(pagination.DefaultParams())
	s.MergeInsert([]model.Record{rec(10, 1000), rec(5, 500)}, ordering.Desc)

	before := s.Records()
	inserted := s.MergeInsert([]model.Record{rec(7, 700), rec(20, 2000), rec(1, 100)}, ordering.Desc)

	replayed := append([]model.Record(nil), before...)
	for _, ins := range inserted {
		replayed = append(replayed, model.Record{})
		copy(replayed[ins.Index+1:], replayed[ins.Index:])
		replayed[ins.Index] = ins.Record
	}
	assert.Equal(t, s.Records(), replayed)
}

func TestStore_MergeInsertAscending(t *testing.T) {
	s := New(pagination.Params{Direction: ordering.Asc})
	s.MergeInsert([]model.Record{rec(3, 300), rec(1, 100), rec(2, 200)}, ordering.Asc)
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Records()))
}

func TestStore_MergeInsertReorientsOnDirectionChange(t *testing.T) {
	s := New(pagination.DefaultParams())
	s.MergeInsert([]model.Record{rec(1, 100), rec(2, 200)}, ordering.Desc)

	s.MergeInsert([]model.Record{rec(3, 300)}, ordering.Asc)
	assert.Equal(t, ordering.Asc, s.Direction())
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Records()))
}

func TestStore_EqualTimestampsTieBreakOnID(t *testing.T) {
	ts := model.TextTimestamp("2024-01-01 10:00:00")
	r5 := model.Record{ID: 5, Timestamp: ts}
	r7 := model.Record{ID: 7, Timestamp: ts}

	desc := New(pagination.DefaultParams())
	desc.MergeInsert([]model.Record{r5, r7}, ordering.Desc)
	assert.Equal(t, []int64{7, 5}, ids(desc.Records()))

	asc := New(pagination.Params{Direction: ordering.Asc})
	asc.MergeInsert([]model.Record{r7, r5}, ordering.Asc)
	assert.Equal(t, []int64{5, 7}, ids(asc.Records()))
}

func TestStore_ResetFor(t *testing.T) {
	s := New(pagination.DefaultParams())
	s.MergeInsert([]model.Record{rec(1, 100)}, ordering.Desc)
	total := int64(10)
	s.AdvanceCursor(&model.Page{Records: []model.Record{rec(1, 100)}, Total: &total, HasMore: false})

	params := pagination.Params{Direction: ordering.Asc, Limit: 20}
	s.ResetFor(params)

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains(1))
	assert.Nil(t, s.Total())
	st := s.State()
	assert.False(t, st.IsLoading)
	assert.True(t, st.HasMore)
	assert.Nil(t, st.Next)
	assert.Equal(t, params.Normalize(), st.Params)
}

func TestStore_AdvanceCursor(t *testing.T) {
	t.Run("prefers transport continuation", func(t *testing.T) {
		s := New(pagination.DefaultParams())
		s.AdvanceCursor(&model.Page{Records: []model.Record{rec(1, 100)}, Continuation: "tok-2", HasMore: true})
		st := s.State()
		require.NotNil(t, st.Next)
		assert.Equal(t, "tok-2", st.Next.Continuation)
		assert.Nil(t, st.Next.AfterID)
		assert.True(t, st.HasMore)
	})

	t.Run("synthesizes from last record in walk order", func(t *testing.T) {
		s := New(pagination.DefaultParams())
		s.AdvanceCursor(&model.Page{Records: []model.Record{rec(9, 900), rec(2, 200), rec(4, 400)}, HasMore: true})
		st := s.State()
		require.NotNil(t, st.Next)
		assert.Equal(t, int64(2), *st.Next.AfterID)
		assert.Equal(t, int64(200000), *st.Next.AfterValue)
	})

	t.Run("all-duplicate page still advances", func(t *testing.T) {
		s := New(pagination.DefaultParams())
		page := &model.Page{Records: []model.Record{rec(2, 200)}, HasMore: false}
		s.MergeInsert(page.Records, ordering.Desc)
		assert.Empty(t, s.MergeInsert(page.Records, ordering.Desc))
		s.AdvanceCursor(page)
		assert.False(t, s.State().HasMore)
		assert.NotNil(t, s.State().Next)
	})

	t.Run("empty page without continuation stops pagination", func(t *testing.T) {
		s := New(pagination.DefaultParams())
		s.AdvanceCursor(&model.Page{HasMore: true})
		assert.False(t, s.State().HasMore)
	})

	t.Run("records total", func(t *testing.T) {
		s := New(pagination.DefaultParams())
		total := int64(77)
		s.AdvanceCursor(&model.Page{Records: []model.Record{rec(1, 1)}, Total: &total, HasMore: true})
		require.NotNil(t, s.Total())
		assert.Equal(t, int64(77), *s.Total())
	})
}

func TestStore_Remove(t *testing.T) {
	s := New(pagination.DefaultParams())
	s.MergeInsert([]model.Record{rec(1, 100), rec(2, 200), rec(3, 300), rec(4, 400)}, ordering.Desc)
	total := int64(4)
	s.AdvanceCursor(&model.Page{Records: []model.Record{rec(1, 100)}, Total: &total, HasMore: false})

	removals := s.Remove([]int64{3, 1, 99})
	assert.Equal(t, []Removal{{Index: 3, ID: 1}, {Index: 1, ID: 3}}, removals)
	assert.Equal(t, []int64{4, 2}, ids(s.Records()))
	assert.False(t, s.Contains(3))
	assert.Equal(t, int64(2), *s.Total())

	assert.Nil(t, s.Remove([]int64{3}))
}

func TestStore_ResetCursorKeepsRecords(t *testing.T) {
	s := New(pagination.DefaultParams())
	s.MergeInsert([]model.Record{rec(1, 100)}, ordering.Desc)
	s.AdvanceCursor(&model.Page{Records: []model.Record{rec(1, 100)}, HasMore: false})
	s.SetLoading(true)

	s.ResetCursor()
	st := s.State()
	assert.Nil(t, st.Next)
	assert.True(t, st.HasMore)
	assert.False(t, st.IsLoading)
	assert.Equal(t, 1, s.Len())
}
