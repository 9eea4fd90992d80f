package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RecordStatus history record outcome
type RecordStatus string

const (
	RecordStatusSuccess     RecordStatus = "success"     // Finished successfully
	RecordStatusError       RecordStatus = "error"       // Finished with an error
	RecordStatusInterrupted RecordStatus = "interrupted" // Interrupted or cancelled
	RecordStatusUnknown     RecordStatus = "unknown"     // Anything the panel does not recognise
)

// NormalizeStatus maps the status strings reported by the remote queue onto RecordStatus.
// Upper-case queue states (COMPLETED, FAILED, ...) are accepted as well.
func NormalizeStatus(raw string) RecordStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "completed", "complete", "succeeded":
		return RecordStatusSuccess
	case "error", "failed", "failure", "timeout":
		return RecordStatusError
	case "interrupted", "cancelled", "canceled":
		return RecordStatusInterrupted
	default:
		return RecordStatusUnknown
	}
}

// UnmarshalJSON normalizes the status while decoding
func (s *RecordStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = RecordStatusUnknown
		return nil
	}
	*s = NormalizeStatus(raw)
	return nil
}

// Record one completed-job history entry.
// Records are immutable once merged into the panel; a record whose ID is already
// known is a duplicate, never an update.
type Record struct {
	ID              int64                  `json:"id"`
	Timestamp       Timestamp              `json:"timestamp"`
	Status          RecordStatus           `json:"status"`
	DurationSeconds *float64               `json:"duration_seconds,omitempty"`
	CategoryKey     string                 `json:"category_key,omitempty"` // Derived from the workflow definition
	Name            string                 `json:"name,omitempty"`
	Outputs         map[string]interface{} `json:"outputs,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

// Timestamp is the primary timestamp of a record as the remote queue reported it:
// an epoch number (seconds or milliseconds) or a calendar string.
// The zero value means "no timestamp".
type Timestamp struct {
	Number *float64
	Text   string
}

// NumericTimestamp builds an epoch-number timestamp
func NumericTimestamp(v float64) Timestamp {
	return Timestamp{Number: &v}
}

// TextTimestamp builds a string timestamp
func TextTimestamp(s string) Timestamp {
	return Timestamp{Text: s}
}

// IsZero reports whether no timestamp was supplied
func (t Timestamp) IsZero() bool {
	return t.Number == nil && t.Text == ""
}

// MarshalJSON writes the timestamp back in the form it arrived in
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Number != nil {
		return json.Marshal(*t.Number)
	}
	if t.Text != "" {
		return json.Marshal(t.Text)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
// Values of any other shape decode to the zero timestamp instead of failing the page.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode timestamp: %w", err)
		}
		t.Text = s
		return nil
	}
	if v, err := strconv.ParseFloat(string(data), 64); err == nil {
		t.Number = &v
	}
	return nil
}

// String renders the timestamp for logs
func (t Timestamp) String() string {
	if t.Number != nil {
		return strconv.FormatFloat(*t.Number, 'f', -1, 64)
	}
	return t.Text
}
