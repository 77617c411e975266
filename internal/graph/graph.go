// Package graph provides the road network of the traffic simulation:
// intersections, the lanes between them, traffic-light control and the
// occupancy-weighted shortest-path router.
package graph

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/paulmach/orb"
)

var (
	// ErrCapacity reports a lane that refused a vehicle it had room for.
	ErrCapacity = errors.New("lane capacity")
	// ErrNotConnected reports a lane request between unconnectable intersections.
	ErrNotConnected = errors.New("not connected")
)

// NodeID identifies an intersection.
type NodeID = string

// Coordinate is a 2D position in screen units.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point converts the coordinate to an orb.Point.
func (c Coordinate) Point() orb.Point { return orb.Point{c.X, c.Y} }

// Node is an intersection in a serialised layout.
type Node struct {
	ID  NodeID     `json:"node_id"`
	Loc Coordinate `json:"loc"`
}

// Edge is a directed lane in a serialised layout.
type Edge struct {
	U NodeID `json:"u"`
	V NodeID `json:"v"`
}

// GraphData is the serialisable input representation of a road network.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Graph owns the intersections and lanes of a road network.
type Graph struct {
	nodes    []*Intersection
	lanes    []*Lane
	nodeMap  map[NodeID]*Intersection
	rng      *rand.Rand
	observer Observer
}

// New returns an empty graph. rng seeds traffic-light timing and modes.
func New(rng *rand.Rand) *Graph {
	return &Graph{
		nodeMap: make(map[NodeID]*Intersection),
		rng:     rng,
	}
}

// NewGraph builds a Graph from GraphData, returning an error if any node or
// edge is invalid.
func NewGraph(data GraphData, rng *rand.Rand) (*Graph, error) {
	g := New(rng)
	for _, n := range data.Nodes {
		if _, err := g.AddIntersection(n.ID, n.Loc.Point()); err != nil {
			return nil, err
		}
	}
	for _, e := range data.Edges {
		if _, err := g.Connect(e.U, e.V); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddIntersection adds an intersection at pos. Returns an error if the ID
// already exists.
func (g *Graph) AddIntersection(id NodeID, pos orb.Point) (*Intersection, error) {
	if _, exists := g.nodeMap[id]; exists {
		return nil, fmt.Errorf("intersection %q already exists", id)
	}
	n := newIntersection(id, pos, g.rng)
	n.observer = g.observer
	g.nodes = append(g.nodes, n)
	g.nodeMap[id] = n
	return n, nil
}

// Connect creates the lane from u to v.
func (g *Graph) Connect(u, v NodeID) (*Lane, error) {
	from, ok := g.nodeMap[u]
	if !ok {
		return nil, fmt.Errorf("lane %s->%s: source intersection not found", u, v)
	}
	to, ok := g.nodeMap[v]
	if !ok {
		return nil, fmt.Errorf("lane %s->%s: target intersection not found", u, v)
	}
	l := from.Connect(to)
	if l == nil {
		return nil, fmt.Errorf("lane %s->%s: %w", u, v, ErrNotConnected)
	}
	g.lanes = append(g.lanes, l)
	return l, nil
}

// ConnectBoth creates the lanes u->v and v->u.
func (g *Graph) ConnectBoth(u, v NodeID) error {
	if _, err := g.Connect(u, v); err != nil {
		return err
	}
	_, err := g.Connect(v, u)
	return err
}

// Intersection looks up an intersection by ID.
func (g *Graph) Intersection(id NodeID) (*Intersection, bool) {
	n, ok := g.nodeMap[id]
	return n, ok
}

// Intersections returns the intersections in insertion order.
func (g *Graph) Intersections() []*Intersection {
	out := make([]*Intersection, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Lanes returns every lane, open or closed, in creation order.
func (g *Graph) Lanes() []*Lane {
	out := make([]*Lane, len(g.lanes))
	copy(out, g.lanes)
	return out
}

// Endpoints returns the intersections with exactly one neighbour. Vehicles
// spawn at and head for these.
func (g *Graph) Endpoints() []*Intersection {
	var out []*Intersection
	for _, n := range g.nodes {
		if n.OutgoingCount() == 1 {
			out = append(out, n)
		}
	}
	return out
}

// SetObserver registers o with every current and future intersection.
func (g *Graph) SetObserver(o Observer) {
	g.observer = o
	for _, n := range g.nodes {
		n.observer = o
	}
}

// Clear removes every vehicle from every lane.
func (g *Graph) Clear() {
	for _, n := range g.nodes {
		n.clear()
	}
}

// Data exports the graph as GraphData, including closed lanes.
func (g *Graph) Data() GraphData {
	data := GraphData{
		Nodes: make([]Node, 0, len(g.nodes)),
		Edges: make([]Edge, 0, len(g.lanes)),
	}
	for _, n := range g.nodes {
		data.Nodes = append(data.Nodes, Node{ID: n.id, Loc: Coordinate{X: n.pos[0], Y: n.pos[1]}})
	}
	for _, l := range g.lanes {
		data.Edges = append(data.Edges, Edge{U: l.from.id, V: l.to.id})
	}
	return data
}
