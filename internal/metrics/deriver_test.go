package metrics

import (
	"math"
	"testing"

	"queuepanel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dur(v float64) *float64 { return &v }

func TestDerive_EmptyHasNoData(t *testing.T) {
	snap := Derive(nil, nil)
	assert.Nil(t, snap.SuccessRate)
	assert.Nil(t, snap.AvgDuration)
	assert.Nil(t, snap.RunningRemaining)
	assert.Nil(t, snap.QueueRemaining)
	assert.Empty(t, snap.CategoryAverages)

	snap = Derive([]model.Record{}, &model.LiveSnapshot{
		Running: []model.Item{{ID: "a"}},
		Pending: []model.Item{{ID: "b"}},
	})
	assert.Nil(t, snap.SuccessRate)
	assert.Nil(t, snap.AvgDuration)
	assert.Nil(t, snap.QueueRemaining)
	assert.Empty(t, snap.ItemETAs)
	assert.Equal(t, 1, snap.Counts.Running)
	assert.Equal(t, 1, snap.Counts.Pending)
}

func TestDerive_SuccessRateAndDurations(t *testing.T) {
	records := []model.Record{
		{ID: 1, Status: model.RecordStatusSuccess, DurationSeconds: dur(10), CategoryKey: "upscale"},
		{ID: 2, Status: model.RecordStatusSuccess, DurationSeconds: dur(20), CategoryKey: "upscale"},
		{ID: 3, Status: model.RecordStatusError, DurationSeconds: dur(60), CategoryKey: "render"},
		{ID: 4, Status: model.RecordStatusInterrupted, DurationSeconds: dur(0)},
		{ID: 5, Status: model.RecordStatusUnknown, DurationSeconds: dur(math.NaN())},
		{ID: 6, Status: model.RecordStatusSuccess, DurationSeconds: dur(-3)},
		{ID: 7, Status: model.RecordStatusSuccess},
	}

	snap := Derive(records, nil)
	require.NotNil(t, snap.SuccessRate)
	assert.InDelta(t, 4.0/6.0, *snap.SuccessRate, 1e-9)
	assert.Equal(t, OutcomeCounts{Success: 4, Error: 1, Interrupted: 1}, snap.Outcomes)
	assert.Equal(t, 7, snap.Counts.History)

	require.NotNil(t, snap.AvgDuration)
	assert.InDelta(t, 30.0, *snap.AvgDuration, 1e-9)
	assert.Equal(t, map[string]float64{"upscale": 15, "render": 60}, snap.CategoryAverages)
}

func TestDerive_ETAs(t *testing.T) {
	records := []model.Record{
		{ID: 1, Status: model.RecordStatusSuccess, DurationSeconds: dur(10), CategoryKey: "upscale"},
		{ID: 2, Status: model.RecordStatusSuccess, DurationSeconds: dur(30), CategoryKey: "render"},
	}
	live := &model.LiveSnapshot{
		Running:   []model.Item{{ID: "r1", CategoryKey: "render"}},
		Pending:   []model.Item{{ID: "p1", CategoryKey: "upscale"}, {ID: "p2", CategoryKey: "unseen"}},
		Persisted: []model.Row{{ID: "s1"}},
		Progress:  map[string]float64{"r1": 0.25},
	}

	snap := Derive(records, live)

	assert.InDelta(t, 22.5, snap.ItemETAs["r1"], 1e-9, "category avg scaled by remaining fraction")
	assert.InDelta(t, 10.0, snap.ItemETAs["p1"], 1e-9, "flat category average for pending")
	assert.InDelta(t, 20.0, snap.ItemETAs["p2"], 1e-9, "global average fallback")

	require.NotNil(t, snap.RunningRemaining)
	require.NotNil(t, snap.QueueRemaining)
	assert.InDelta(t, 22.5, *snap.RunningRemaining, 1e-9)
	assert.InDelta(t, 52.5, *snap.QueueRemaining, 1e-9)
	assert.Equal(t, Counts{Running: 1, Pending: 2, Persisted: 1, History: 2}, snap.Counts)
}

func TestDerive_ProgressOutOfRangeIsClamped(t *testing.T) {
	records := []model.Record{{ID: 1, Status: model.RecordStatusSuccess, DurationSeconds: dur(10)}}
	live := &model.LiveSnapshot{
		Running:  []model.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Progress: map[string]float64{"a": 1.7, "b": -1, "c": math.NaN()},
	}

	snap := Derive(records, live)
	assert.InDelta(t, 0.0, snap.ItemETAs["a"], 1e-9)
	assert.InDelta(t, 10.0, snap.ItemETAs["b"], 1e-9)
	assert.InDelta(t, 10.0, snap.ItemETAs["c"], 1e-9)
}
