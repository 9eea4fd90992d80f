package anchor

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(l *ListLayout, n int) {
	for i := 0; i < n; i++ {
		l.Insert(i, fmt.Sprintf("row-%d", i))
	}
	l.Settle()
}

func offsetOf(t *testing.T, l *ListLayout, key string) float64 {
	t.Helper()
	l.Settle()
	el, ok := find(l.Elements(), key)
	require.True(t, ok, "element %s not laid out", key)
	return el.Top - l.ScrollTop()
}

func TestWithStableAnchor_InsertAboveKeepsOffset(t *testing.T) {
	l := NewListLayout(20, 200)
	fill(l, 50)
	l.SetScrollTop(410) // row-21 is the first row at or below the top, 10px down
	k := NewKeeper(l)

	before := offsetOf(t, l, "row-21")
	assert.InDelta(t, 10.0, before, 1e-9)

	k.WithStableAnchor(func() {
		for i := 0; i < 7; i++ {
			l.Insert(0, fmt.Sprintf("new-%d", i))
		}
	})

	assert.InDelta(t, before, offsetOf(t, l, "row-21"), 1e-9)
	assert.InDelta(t, 550.0, l.ScrollTop(), 1e-9)
}

func TestWithStableAnchor_InsertBelowDoesNotScroll(t *testing.T) {
	l := NewListLayout(20, 200)
	fill(l, 50)
	l.SetScrollTop(400)
	k := NewKeeper(l)

	k.WithStableAnchor(func() { l.Insert(45, "below") })
	assert.InDelta(t, 400.0, l.ScrollTop(), 1e-9)
}

func TestWithStableAnchor_RemoveAbove(t *testing.T) {
	l := NewListLayout(20, 200)
	fill(l, 50)
	l.SetScrollTop(400)
	k := NewKeeper(l)

	k.WithStableAnchor(func() {
		l.Remove(0)
		l.Remove(0)
	})
	assert.InDelta(t, 0.0, offsetOf(t, l, "row-20"), 1e-9)
	assert.InDelta(t, 360.0, l.ScrollTop(), 1e-9)
}

func TestWithStableAnchor_Nested(t *testing.T) {
	l := NewListLayout(10, 100)
	fill(l, 30)
	l.SetScrollTop(100)
	k := NewKeeper(l)

	k.WithStableAnchor(func() {
		l.Insert(0, "outer")
		k.WithStableAnchor(func() {
			assert.Equal(t, 2, k.Depth())
			l.Insert(0, "inner")
		})
		// inner call must not have corrected anything
		assert.InDelta(t, 100.0, l.ScrollTop(), 1e-9)
	})

	assert.Equal(t, 0, k.Depth())
	assert.InDelta(t, 0.0, offsetOf(t, l, "row-10"), 1e-9)
	assert.InDelta(t, 120.0, l.ScrollTop(), 1e-9)
}

func TestWithStableAnchor_RemovedAnchorIsSilent(t *testing.T) {
	l := NewListLayout(10, 100)
	fill(l, 30)
	l.SetScrollTop(100)
	k := NewKeeper(l)

	assert.NotPanics(t, func() {
		k.WithStableAnchor(func() {
			l.Insert(0, "x")
			l.Remove(11) // row-10, the anchor
		})
	})
	assert.InDelta(t, 100.0, l.ScrollTop(), 1e-9)
}

func TestWithStableAnchor_EmptyAndPanics(t *testing.T) {
	l := NewListLayout(10, 100)
	k := NewKeeper(l)

	k.WithStableAnchor(func() { fill(l, 3) })
	assert.Equal(t, 3, l.Len())

	assert.Panics(t, func() {
		k.WithStableAnchor(func() { panic("boom") })
	})
	assert.Equal(t, 0, k.Depth())
}

func TestWithStableAnchor_RemoveAboveNearTop(t *testing.T) {
	l := NewListLayout(10, 100)
	fill(l, 20)
	l.SetScrollTop(100)
	k := NewKeeper(l)

	k.WithStableAnchor(func() {
		for i := 0; i < 5; i++ {
			l.Remove(0)
		}
	})
	assert.InDelta(t, 50.0, l.ScrollTop(), 1e-9)
}

type stubLayout struct {
	scrollTop float64
	elements  []Element
	settles   int
}

func (s *stubLayout) ScrollTop() float64 { return s.scrollTop }
func (s *stubLayout) SetScrollTop(top float64) { s.scrollTop = top }
func (s *stubLayout) Elements() []Element { return s.elements }
func (s *stubLayout) Settle() { s.settles++ }

func TestWithStableAnchor_AllScrolledPastUsesLastElement(t *testing.T) {
	s := &stubLayout{
		scrollTop: 500,
		elements:  []Element{{Key: "a", Top: 0, Height: 10}, {Key: "b", Top: 10, Height: 10}},
	}
	k := NewKeeper(s)

	k.WithStableAnchor(func() {
		s.elements = []Element{{Key: "new", Top: 0, Height: 10}, {Key: "a", Top: 10, Height: 10}, {Key: "b", Top: 20, Height: 10}}
	})
	assert.InDelta(t, 510.0, s.scrollTop, 1e-9)
	assert.Equal(t, 2, s.settles)
}

// TestProperty_InsertAboveAnchor verifies N insertions above the anchor leave its offset unchanged.
func TestProperty_InsertAboveAnchor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("anchor offset survives insertions above it", prop.ForAll(
		func(rows, scrollRow, inserts int) bool {
			l := NewListLayout(24, 240)
			fill(l, rows)
			l.SetScrollTop(float64(scrollRow*24 + 5))
			k := NewKeeper(l)

			ref, ok := k.capture()
			if !ok {
				return false
			}
			anchorIndex := 0
			for i, key := range l.Keys() {
				if key == ref.key {
					anchorIndex = i
				}
			}

			k.WithStableAnchor(func() {
				for i := 0; i < inserts; i++ {
					l.Insert(i%(anchorIndex+1), fmt.Sprintf("n-%d", i))
				}
			})

			l.Settle()
			el, found := find(l.Elements(), ref.key)
			return found && el.Top-l.ScrollTop() == ref.offset
		},
		gen.IntRange(20, 80),
		gen.IntRange(0, 9),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}
