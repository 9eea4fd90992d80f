// Package ordering computes the total-order key used to sort, merge and
// deduplicate history records.
package ordering

import (
	"math"
	"strconv"
	"strings"
	"time"

	"queuepanel/internal/model"
)

// secondsThreshold numeric timestamps below this are epoch seconds, at or above it epoch milliseconds
const secondsThreshold = 1e12

// Direction sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses a direction, defaulting to Desc
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Asc)) {
		return Asc
	}
	return Desc
}

// Valid reports whether d is one of Asc or Desc
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// Reverse returns the opposite direction
func (d Direction) Reverse() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Key (timeMillis, id) total-order key of a record
type Key struct {
	TimeMillis int64 `json:"time_millis"`
	ID         int64 `json:"id"`
}

// Compare orders keys ascending: time first, ties broken on id.
func (k Key) Compare(o Key) int {
	switch {
	case k.TimeMillis < o.TimeMillis:
		return -1
	case k.TimeMillis > o.TimeMillis:
		return 1
	case k.ID < o.ID:
		return -1
	case k.ID > o.ID:
		return 1
	}
	return 0
}

// Compare orders keys in direction d. Desc is the exact reverse of Asc.
func (d Direction) Compare(a, b Key) int {
	c := a.Compare(b)
	if d == Desc {
		return -c
	}
	return c
}

// Before reports whether a is displayed before b in direction d
func (d Direction) Before(a, b Key) bool {
	return d.Compare(a, b) < 0
}

// KeyOf derives the ordering key of a record. It never fails: a record without a
// usable timestamp falls back to its id as pseudo-time.
func KeyOf(r model.Record) Key {
	ms, ok := TimeMillis(r.Timestamp)
	if !ok {
		ms = r.ID
	}
	return Key{TimeMillis: ms, ID: r.ID}
}

// TimeMillis resolves a timestamp to epoch milliseconds
func TimeMillis(ts model.Timestamp) (int64, bool) {
	if ts.Number != nil {
		return numericMillis(*ts.Number)
	}
	s := strings.TrimSpace(ts.Text)
	if s == "" {
		return 0, false
	}
	if isDigits(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return numericMillis(v)
	}
	if t, ok := parseCalendar(s); ok {
		return t.UnixMilli(), true
	}
	// "2024-01-01 10:00:00" style
	if i := strings.IndexByte(s, ' '); i > 0 {
		if t, ok := parseCalendar(s[:i] + "T" + s[i+1:]); ok {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func numericMillis(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if math.Abs(v) < secondsThreshold {
		v *= 1000
	}
	if math.Abs(v) > math.MaxInt64/2 {
		return 0, false
	}
	return int64(math.Round(v)), true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// calendarLayouts strict layouts tried in order; zone-less layouts are read as UTC
var calendarLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseCalendar(s string) (time.Time, bool) {
	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
