package ordering

import (
	"testing"

	"queuepanel/internal/model"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_DirectionsAreExactReverses verifies that for any pair of keys the
// descending comparison is the negation of the ascending one, and that distinct
// records never compare equal.
func TestProperty_DirectionsAreExactReverses(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("desc compare is negated asc compare", prop.ForAll(
		func(t1, t2, id1, id2 int64) bool {
			a := Key{TimeMillis: t1, ID: id1}
			b := Key{TimeMillis: t2, ID: id2}
			return Desc.Compare(a, b) == -Asc.Compare(a, b)
		},
		gen.Int64Range(0, 50),
		gen.Int64Range(0, 50),
		gen.Int64Range(0, 1000),
		gen.Int64Range(0, 1000),
	))

	properties.Property("distinct ids never tie", prop.ForAll(
		func(ts, id1, id2 int64) bool {
			if id1 == id2 {
				return true
			}
			a := KeyOf(model.Record{ID: id1, Timestamp: model.NumericTimestamp(float64(ts))})
			b := KeyOf(model.Record{ID: id2, Timestamp: model.NumericTimestamp(float64(ts))})
			return Asc.Compare(a, b) != 0 && Desc.Compare(a, b) != 0
		},
		gen.Int64Range(1600000000, 1800000000),
		gen.Int64Range(1, 100000),
		gen.Int64Range(1, 100000),
	))

	properties.Property("seconds and milliseconds scale resolve identically", prop.ForAll(
		func(secs int64) bool {
			a, okA := TimeMillis(model.NumericTimestamp(float64(secs)))
			b, okB := TimeMillis(model.NumericTimestamp(float64(secs * 1000)))
			return okA && okB && a == b
		},
		gen.Int64Range(1000000000, 9999999999),
	))

	properties.TestingRun(t)
}
