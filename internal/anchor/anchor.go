// Package anchor keeps the visible list content stationary while items are inserted,
// removed or reordered around the viewport.
package anchor

// Element one laid out element, positions in content coordinates
type Element struct {
	Key    string
	Top    float64
	Height float64
}

// Layout the presentation surface the keeper corrects
type Layout interface {
	ScrollTop() float64
	SetScrollTop(top float64)
	// Elements returns the elements in display order as of the last settled layout
	Elements() []Element
	// Settle runs any pending layout pass
	Settle()
}

// Keeper wraps mutations so the element nearest the top of the viewport stays put.
// It is not safe for concurrent use; it belongs to the goroutine that renders.
type Keeper struct {
	layout Layout
	depth  int
}

// NewKeeper creates a keeper for layout
func NewKeeper(layout Layout) *Keeper {
	return &Keeper{layout: layout}
}

type reference struct {
	key    string
	offset float64
}

// WithStableAnchor runs mutate and then corrects the scroll position by however far the
// reference element moved. Nested calls run mutate directly; only the outermost call
// captures and restores. If the reference element is gone afterwards nothing is restored.
func (k *Keeper) WithStableAnchor(mutate func()) {
	k.depth++
	defer func() { k.depth-- }()

	if k.depth > 1 {
		mutate()
		return
	}

	ref, ok := k.capture()
	mutate()
	if !ok {
		return
	}

	k.layout.Settle()
	el, found := find(k.layout.Elements(), ref.key)
	if !found {
		return
	}
	scrollTop := k.layout.ScrollTop()
	if delta := (el.Top - scrollTop) - ref.offset; delta != 0 {
		k.layout.SetScrollTop(scrollTop + delta)
	}
}

// Depth the current nesting depth, 0 outside any call
func (k *Keeper) Depth() int {
	return k.depth
}

// capture picks the first element whose top is at or below the viewport top, else
// the last element already scrolled past
func (k *Keeper) capture() (reference, bool) {
	k.layout.Settle()
	elements := k.layout.Elements()
	if len(elements) == 0 {
		return reference{}, false
	}
	scrollTop := k.layout.ScrollTop()

	pick := elements[len(elements)-1]
	for _, el := range elements {
		if el.Top >= scrollTop {
			pick = el
			break
		}
	}
	return reference{key: pick.Key, offset: pick.Top - scrollTop}, true
}

func find(elements []Element, key string) (Element, bool) {
	for _, el := range elements {
		if el.Key == key {
			return el, true
		}
	}
	return Element{}, false
}
