package anchor

// ListLayout an in-memory vertical list of fixed-height rows. Mutations mark the layout
// dirty; positions are recomputed on Settle, like a real layout pass.
type ListLayout struct {
	rowHeight float64
	viewport  float64
	keys      []string
	elements  []Element
	dirty     bool
	scrollTop float64
}

// NewListLayout creates an empty list with the given row and viewport heights
func NewListLayout(rowHeight, viewport float64) *ListLayout {
	if rowHeight <= 0 {
		rowHeight = 1
	}
	return &ListLayout{rowHeight: rowHeight, viewport: viewport}
}

// Insert inserts a row before index; out-of-range indexes append
func (l *ListLayout) Insert(index int, key string) {
	if index < 0 || index > len(l.keys) {
		index = len(l.keys)
	}
	l.keys = append(l.keys, "")
	copy(l.keys[index+1:], l.keys[index:])
	l.keys[index] = key
	l.dirty = true
}

// Remove removes the row at index, ignoring out-of-range indexes
func (l *ListLayout) Remove(index int) {
	if index < 0 || index >= len(l.keys) {
		return
	}
	l.keys = append(l.keys[:index], l.keys[index+1:]...)
	l.dirty = true
}

// Reset removes every row and scrolls to the top
func (l *ListLayout) Reset() {
	l.keys = nil
	l.scrollTop = 0
	l.dirty = true
}

// Keys the row keys in display order
func (l *ListLayout) Keys() []string {
	return append([]string(nil), l.keys...)
}

// Len number of rows
func (l *ListLayout) Len() int {
	return len(l.keys)
}

// ContentHeight total height of all rows
func (l *ListLayout) ContentHeight() float64 {
	return float64(len(l.keys)) * l.rowHeight
}

func (l *ListLayout) ScrollTop() float64 {
	return l.scrollTop
}

// SetScrollTop scrolls, clamped to the scrollable range
func (l *ListLayout) SetScrollTop(top float64) {
	limit := l.ContentHeight() - l.viewport
	if top > limit {
		top = limit
	}
	if top < 0 {
		top = 0
	}
	l.scrollTop = top
}

func (l *ListLayout) Elements() []Element {
	return l.elements
}

func (l *ListLayout) Settle() {
	if !l.dirty {
		return
	}
	l.elements = make([]Element, len(l.keys))
	for i, key := range l.keys {
		l.elements[i] = Element{Key: key, Top: float64(i) * l.rowHeight, Height: l.rowHeight}
	}
	l.dirty = false
}

// Visible the keys of rows intersecting the viewport
func (l *ListLayout) Visible() []string {
	l.Settle()
	var out []string
	bottom := l.scrollTop + l.viewport
	for _, el := range l.elements {
		if el.Top+el.Height > l.scrollTop && el.Top < bottom {
			out = append(out, el.Key)
		}
	}
	return out
}
