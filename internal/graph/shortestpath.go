package graph

import (
	"container/heap"
	"math"
)

// nodeQueue is a min-heap of intersections ordered by minDistance.
type nodeQueue []*Intersection

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].minDistance < q[j].minDistance }
func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *nodeQueue) Push(x any) {
	n := x.(*Intersection)
	n.heapIndex = len(*q)
	*q = append(*q, n)
}

func (q *nodeQueue) Pop() any {
	old := *q
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.heapIndex = -1
	*q = old[:last]
	return n
}

// FindRoute returns the cheapest route from one intersection to another over
// open lanes, weighting each lane by its current occupancy. It returns nil
// when to is unreachable or equal to from.
func (g *Graph) FindRoute(from, to *Intersection) *Route {
	if from == nil || to == nil {
		return nil
	}
	g.computePaths(from)
	return shortestPathTo(to)
}

// computePaths runs Dijkstra from source, leaving distances and predecessors
// in the intersections' scratch fields.
func (g *Graph) computePaths(source *Intersection) {
	for _, n := range g.nodes {
		n.minDistance = math.Inf(1)
		n.previous = nil
		n.heapIndex = -1
	}
	source.minDistance = 0
	source.previous = nil
	source.heapIndex = -1

	q := &nodeQueue{}
	heap.Push(q, source)
	for q.Len() > 0 {
		u := heap.Pop(q).(*Intersection)
		for _, l := range u.out {
			if l == nil {
				continue
			}
			v := l.to
			d := u.minDistance + float64(l.Weight())
			if d >= v.minDistance {
				continue
			}
			v.minDistance = d
			v.previous = u
			if v.heapIndex >= 0 {
				heap.Fix(q, v.heapIndex)
			} else {
				heap.Push(q, v)
			}
		}
	}
}

func shortestPathTo(target *Intersection) *Route {
	var reversed []*Intersection
	for n := target; n != nil; n = n.previous {
		reversed = append(reversed, n)
	}
	if len(reversed) <= 1 {
		return nil
	}
	route := NewPath[*Intersection]()
	var prev *Intersection
	for i := len(reversed) - 1; i >= 0; i-- {
		n := reversed[i]
		w := 0
		if prev != nil {
			if l := prev.LaneTo(n); l != nil {
				w = l.Weight()
			}
		}
		route.Append(n, w)
		prev = n
	}
	return route
}
