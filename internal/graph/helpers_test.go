package graph

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/require"
)

type testVehicle struct {
	id     string
	length float64
	pos    orb.Point
	target orb.Point
	lane   *Lane
	dest   *Intersection
	route  *Route
	graph  *Graph
	risky  bool
	dead   bool
}

var vehicleSeq int

func newTestVehicle(g *Graph, dest *Intersection) *testVehicle {
	vehicleSeq++
	return &testVehicle{id: fmt.Sprintf("v%d", vehicleSeq), length: 2, graph: g, dest: dest}
}

func (v *testVehicle) ID() string              { return v.id }
func (v *testVehicle) Length() float64         { return v.length }
func (v *testVehicle) Position() orb.Point     { return v.pos }
func (v *testVehicle) Place(p orb.Point)       { v.pos = p }
func (v *testVehicle) SetTarget(p orb.Point)   { v.target = p }
func (v *testVehicle) TargetDistance() float64 { return planar.Distance(v.pos, v.target) }
func (v *testVehicle) EnterLane(l *Lane)       { v.lane = l }
func (v *testVehicle) Destination() *Intersection {
	return v.dest
}
func (v *testVehicle) TakesRisk() bool { return v.risky }
func (v *testVehicle) Kill()           { v.dead = true }

func (v *testVehicle) NextHop(from *Intersection) *Intersection {
	if v.route == nil {
		return nil
	}
	next, _ := v.route.Next(from)
	return next
}

func (v *testVehicle) Reroute(from *Intersection) bool {
	v.route = v.graph.FindRoute(from, v.dest)
	return v.route != nil
}

// arrive snaps the vehicle onto its lane end.
func (v *testVehicle) arrive() { v.pos = v.target }

// forward moves the vehicle d units along the x axis.
func (v *testVehicle) forward(d float64) { v.pos = orb.Point{v.pos[0] + d, v.pos[1]} }

type removal struct {
	id     string
	at     NodeID
	reason RemovalReason
}

type recordingObserver struct {
	removed   []removal
	deadlocks int
}

func (o *recordingObserver) VehicleRemoved(v Occupant, at *Intersection, reason RemovalReason) {
	o.removed = append(o.removed, removal{id: v.ID(), at: at.ID(), reason: reason})
}

func (o *recordingObserver) DeadlockDetected(*Intersection, Direction, Occupant) {
	o.deadlocks++
}

func testRand() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) }

// buildGraph creates intersections from a name->position map and the listed
// directed lanes.
func buildGraph(t *testing.T, nodes map[string]orb.Point, lanes [][2]string) *Graph {
	t.Helper()
	g := New(testRand())
	for _, id := range slices.Sorted(maps.Keys(nodes)) {
		_, err := g.AddIntersection(id, nodes[id])
		require.NoError(t, err)
	}
	for _, l := range lanes {
		_, err := g.Connect(l[0], l[1])
		require.NoError(t, err, "lane %s->%s", l[0], l[1])
	}
	return g
}

func node(t *testing.T, g *Graph, id string) *Intersection {
	t.Helper()
	n, ok := g.Intersection(id)
	require.True(t, ok, "intersection %s", id)
	return n
}

// routeOf builds a route over the given intersection IDs.
func routeOf(t *testing.T, g *Graph, ids ...string) *Route {
	t.Helper()
	r := NewPath[*Intersection]()
	for _, id := range ids {
		r.Append(node(t, g, id), 0)
	}
	return r
}

func ids(r *Route) []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, r.Len())
	for _, n := range r.Nodes() {
		out = append(out, n.ID())
	}
	return out
}
