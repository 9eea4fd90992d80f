// Package metrics derives aggregate statistics from the loaded history window and
// the live queue.
package metrics

import (
	"math"

	"queuepanel/internal/model"
)

// Counts items per lifecycle bucket
type Counts struct {
	Running   int `json:"running"`
	Pending   int `json:"pending"`
	Persisted int `json:"persisted"`
	History   int `json:"history"`
}

// OutcomeCounts history outcomes over the loaded window
type OutcomeCounts struct {
	Success     int `json:"success"`
	Error       int `json:"error"`
	Interrupted int `json:"interrupted"`
}

// Snapshot derived metrics. Nil pointers mean "no data" and must be rendered as a
// neutral placeholder, never as zero.
type Snapshot struct {
	Counts           Counts             `json:"counts"`
	Outcomes         OutcomeCounts      `json:"outcomes"`
	SuccessRate      *float64           `json:"success_rate"`           // over the loaded window only
	AvgDuration      *float64           `json:"avg_duration_seconds"`   // records with a positive finite duration
	CategoryAverages map[string]float64 `json:"category_avg_seconds"`   // category key -> average duration
	ItemETAs         map[string]float64 `json:"item_eta_seconds"`       // running/pending item id -> remaining seconds
	RunningRemaining *float64           `json:"running_remaining_seconds"`
	QueueRemaining   *float64           `json:"queue_remaining_seconds"` // running remaining plus every pending estimate
}

type durationSum struct {
	total float64
	n     int
}

func (d durationSum) avg() (float64, bool) {
	if d.n == 0 {
		return 0, false
	}
	return d.total / float64(d.n), true
}

// Derive recomputes every metric in one pass over records plus one pass over the
// live queue. live may be nil.
func Derive(records []model.Record, live *model.LiveSnapshot) Snapshot {
	snap := Snapshot{
		CategoryAverages: make(map[string]float64),
		ItemETAs:         make(map[string]float64),
	}
	snap.Counts.History = len(records)

	var global durationSum
	categories := make(map[string]*durationSum)

	for _, r := range records {
		switch r.Status {
		case model.RecordStatusSuccess:
			snap.Outcomes.Success++
		case model.RecordStatusError:
			snap.Outcomes.Error++
		case model.RecordStatusInterrupted:
			snap.Outcomes.Interrupted++
		}

		d, ok := validDuration(r.DurationSeconds)
		if !ok {
			continue
		}
		global.total += d
		global.n++
		if r.CategoryKey != "" {
			c := categories[r.CategoryKey]
			if c == nil {
				c = &durationSum{}
				categories[r.CategoryKey] = c
			}
			c.total += d
			c.n++
		}
	}

	if finished := snap.Outcomes.Success + snap.Outcomes.Error + snap.Outcomes.Interrupted; finished > 0 {
		rate := float64(snap.Outcomes.Success) / float64(finished)
		snap.SuccessRate = &rate
	}
	globalAvg, hasGlobal := global.avg()
	if hasGlobal {
		snap.AvgDuration = &globalAvg
	}
	for key, c := range categories {
		if avg, ok := c.avg(); ok {
			snap.CategoryAverages[key] = avg
		}
	}

	if live == nil {
		return snap
	}
	snap.Counts.Running = len(live.Running)
	snap.Counts.Pending = len(live.Pending)
	snap.Counts.Persisted = len(live.Persisted)

	estimate := func(category string) (float64, bool) {
		if avg, ok := snap.CategoryAverages[category]; ok && category != "" {
			return avg, true
		}
		return globalAvg, hasGlobal
	}

	var running, queue float64
	for _, it := range live.Running {
		avg, ok := estimate(it.CategoryKey)
		if !ok {
			continue
		}
		fraction := clampFraction(live.Progress[it.ID])
		remaining := avg * (1 - fraction)
		snap.ItemETAs[it.ID] = remaining
		running += remaining
	}
	queue = running
	for _, it := range live.Pending {
		avg, ok := estimate(it.CategoryKey)
		if !ok {
			continue
		}
		snap.ItemETAs[it.ID] = avg
		queue += avg
	}

	// category averages only exist when a global average does
	if hasGlobal {
		snap.RunningRemaining = &running
		snap.QueueRemaining = &queue
	}
	return snap
}

func validDuration(d *float64) (float64, bool) {
	if d == nil || math.IsNaN(*d) || math.IsInf(*d, 0) || *d <= 0 {
		return 0, false
	}
	return *d, true
}

func clampFraction(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
