// Package progress reduces per-subtask progress reports into one running fraction.
package progress

import (
	"math"
	"strings"

	"queuepanel/internal/model"
)

// StateRunning the only report state that contributes to the fraction
const StateRunning = "running"

// Aggregate returns numerator/denominator over running reports, where each report
// contributes clamp(value, 0, max(1, max)) and max(1, max). Malformed numbers are
// clamped, never propagated. Returns 0 when nothing is running.
func Aggregate(reports []model.ProgressReport) float64 {
	var num, den float64
	for _, r := range reports {
		if !strings.EqualFold(r.State, StateRunning) {
			continue
		}
		limit := sanitizeMax(r.Max)
		num += clamp(r.Value, 0, limit)
		den += limit
	}
	if den <= 0 {
		return 0
	}
	return clamp(num/den, 0, 1)
}

// AggregateMap aggregates reports keyed by subtask id
func AggregateMap(reports map[string]model.ProgressReport) float64 {
	list := make([]model.ProgressReport, 0, len(reports))
	for _, r := range reports {
		list = append(list, r)
	}
	return Aggregate(list)
}

func sanitizeMax(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
