package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// EventKind lifecycle event kind pushed by the observed queue
type EventKind string

const (
	EventKindProgress      EventKind = "progress"       // Raw per-subtask progress reports
	EventKindStatusChanged EventKind = "status-changed" // Triggers a non-forced refresh
)

// LifecycleEvent one push-style event from the remote queue
type LifecycleEvent struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ProgressReport a single subtask progress report
type ProgressReport struct {
	State string  `json:"state"`
	Value float64 `json:"value"`
	Max   float64 `json:"max"`
}

// UnmarshalJSON decodes a report without ever failing the surrounding payload.
// value and max accept a number, a numeric string or null; anything else becomes NaN
// and is clamped during aggregation. A report that is not an object decodes to the
// zero report, which does not count as running.
func (r *ProgressReport) UnmarshalJSON(data []byte) error {
	*r = ProgressReport{}
	var raw struct {
		State json.RawMessage `json:"state"`
		Value json.RawMessage `json:"value"`
		Max   json.RawMessage `json:"max"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if err := json.Unmarshal(raw.State, &r.State); err != nil {
		r.State = ""
	}
	r.Value = lenientNumber(raw.Value)
	r.Max = lenientNumber(raw.Max)
	return nil
}

func lenientNumber(data json.RawMessage) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0
	}
	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return math.NaN()
		}
		text = strings.TrimSpace(text)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ProgressPayload payload of a progress event
type ProgressPayload struct {
	ItemID  string                    `json:"item_id"`
	Reports map[string]ProgressReport `json:"reports"` // subtask id -> report
}

// IntentKind mutation intent kind
type IntentKind string

const (
	IntentReorder       IntentKind = "reorder"
	IntentDelete        IntentKind = "delete"
	IntentDeleteHistory IntentKind = "delete-history"
	IntentRename        IntentKind = "rename"
	IntentPause         IntentKind = "pause"
	IntentResume        IntentKind = "resume"
)

// Intent a fire-and-forget mutation request sent to the host collaborator
type Intent struct {
	ID         string     `json:"id"`
	Kind       IntentKind `json:"kind"`
	ItemIDs    []string   `json:"item_ids,omitempty"`
	HistoryIDs []int64    `json:"history_ids,omitempty"`
	Text       string     `json:"text,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
