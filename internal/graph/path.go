package graph

import (
	"fmt"
	"strings"
)

// Path is an ordered, weighted sequence of nodes with a movable read cursor.
// Positions are 1-based; the cursor starts at 1.
type Path[N comparable] struct {
	items   []N
	weight  int
	pointer int
}

// Route is the path type produced by the router and followed by vehicles.
type Route = Path[*Intersection]

// NewPath returns an empty path.
func NewPath[N comparable]() *Path[N] {
	return &Path[N]{pointer: 1}
}

// Append adds n to the end of the path and adds w to its aggregate weight.
func (p *Path[N]) Append(n N, w int) {
	p.items = append(p.items, n)
	p.weight += w
}

// Weight returns the aggregate weight of the path.
func (p *Path[N]) Weight() int { return p.weight }

// Len returns the number of nodes in the path.
func (p *Path[N]) Len() int { return len(p.items) }

// Get returns the node at 1-based position i.
func (p *Path[N]) Get(i int) (N, bool) {
	var zero N
	if i < 1 || i > len(p.items) {
		return zero, false
	}
	return p.items[i-1], true
}

// IndexOf returns the 1-based position of the first occurrence of n, or 0.
func (p *Path[N]) IndexOf(n N) int {
	for i, item := range p.items {
		if item == n {
			return i + 1
		}
	}
	return 0
}

// Contains reports whether n is on the path.
func (p *Path[N]) Contains(n N) bool { return p.IndexOf(n) > 0 }

// Next returns the node immediately following the first occurrence of n.
// It reports false if n is absent or last.
func (p *Path[N]) Next(n N) (N, bool) {
	idx := p.IndexOf(n)
	if idx == 0 {
		var zero N
		return zero, false
	}
	return p.Get(idx + 1)
}

// Current returns the node under the cursor.
func (p *Path[N]) Current() (N, bool) { return p.Get(p.pointer) }

// Upcoming returns the node after the cursor.
func (p *Path[N]) Upcoming() (N, bool) { return p.Get(p.pointer + 1) }

// Pointer returns the cursor position.
func (p *Path[N]) Pointer() int { return p.pointer }

// SetPointer moves the cursor to i, or back to 1 when i is out of range.
func (p *Path[N]) SetPointer(i int) {
	if i > 0 && i <= len(p.items) {
		p.pointer = i
		return
	}
	p.pointer = 1
}

// IncrementPointer advances the cursor unless it already sits on the last node.
func (p *Path[N]) IncrementPointer() {
	if p.pointer < len(p.items) {
		p.pointer++
	}
}

// Nodes returns a copy of the node sequence.
func (p *Path[N]) Nodes() []N {
	out := make([]N, len(p.items))
	copy(out, p.items)
	return out
}

// Clone copies the node sequence and weight. The clone's cursor starts at 1.
func (p *Path[N]) Clone() *Path[N] {
	c := &Path[N]{
		items:   p.Nodes(),
		weight:  p.weight,
		pointer: 1,
	}
	return c
}

func (p *Path[N]) String() string {
	parts := make([]string, len(p.items))
	for i, item := range p.items {
		parts[i] = fmt.Sprint(item)
	}
	return strings.Join(parts, " -> ")
}
