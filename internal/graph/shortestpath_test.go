package graph

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRouteLine(t *testing.T) {
	g := buildGraph(t, map[string]orb.Point{"a": {0, 0}, "b": {100, 0}, "c": {200, 0}},
		[][2]string{{"a", "b"}, {"b", "c"}})
	a, c := node(t, g, "a"), node(t, g, "c")

	r := g.FindRoute(a, c)
	require.NotNil(t, r)
	assert.Equal(t, []string{"a", "b", "c"}, ids(r))
	assert.Equal(t, 0, r.Weight())

	assert.Nil(t, g.FindRoute(c, a), "lanes are one-way")
	assert.Nil(t, g.FindRoute(a, a))
	assert.Nil(t, g.FindRoute(nil, c))
	assert.Nil(t, g.FindRoute(a, nil))
}

func TestFindRouteUnreachableIsland(t *testing.T) {
	g := buildGraph(t, map[string]orb.Point{"a": {0, 0}, "b": {100, 0}, "island": {500, 500}},
		[][2]string{{"a", "b"}, {"b", "a"}})
	assert.Nil(t, g.FindRoute(node(t, g, "a"), node(t, g, "island")))
}

// cityGraph is the eight-intersection layout used for re-routing checks.
func cityGraph(t *testing.T) *Graph {
	t.Helper()
	return buildGraph(t, map[string]orb.Point{
		"n1": {200, 0}, "n2": {200, 100}, "n3": {300, 100}, "n4": {400, 100},
		"n5": {200, 200}, "n6": {300, 0}, "n7": {100, 100}, "n8": {100, 200},
	}, [][2]string{
		{"n8", "n5"}, {"n5", "n8"}, {"n2", "n1"}, {"n5", "n2"}, {"n3", "n2"}, {"n4", "n3"},
		{"n6", "n3"}, {"n7", "n2"}, {"n2", "n7"}, {"n8", "n7"}, {"n7", "n8"}, {"n1", "n2"},
		{"n2", "n5"}, {"n2", "n3"}, {"n3", "n4"}, {"n3", "n6"},
	})
}

func TestFindRouteAvoidsOccupiedLanes(t *testing.T) {
	g := cityGraph(t)
	n1, n2, n7, n8 := node(t, g, "n1"), node(t, g, "n2"), node(t, g, "n7"), node(t, g, "n8")

	before := g.FindRoute(n1, n8)
	require.NotNil(t, before)
	assert.Equal(t, 4, before.Len())
	assert.Equal(t, 0, before.Weight())

	for _, l := range []*Lane{n2.LaneTo(n7), n7.LaneTo(n8)} {
		require.True(t, l.OfferVehicle(newTestVehicle(g, nil)))
	}

	after := g.FindRoute(n1, n8)
	require.NotNil(t, after)
	assert.Equal(t, []string{"n1", "n2", "n5", "n8"}, ids(after))
	assert.Equal(t, 0, after.Weight())
}

func TestFindRouteCountsOccupancyInWeight(t *testing.T) {
	g := cityGraph(t)
	n1, n2, n5, n7, n8 := node(t, g, "n1"), node(t, g, "n2"), node(t, g, "n5"), node(t, g, "n7"), node(t, g, "n8")

	require.True(t, n2.LaneTo(n7).OfferVehicle(newTestVehicle(g, nil)))
	require.True(t, n2.LaneTo(n5).OfferVehicle(newTestVehicle(g, nil)))
	l := n5.LaneTo(n8)
	v := newTestVehicle(g, nil)
	require.True(t, l.OfferVehicle(v))

	r := g.FindRoute(n1, n8)
	require.NotNil(t, r)
	assert.Equal(t, []string{"n1", "n2", "n7", "n8"}, ids(r))
	assert.Equal(t, 1, r.Weight())
}

func TestFindRouteSkipsClosedLanes(t *testing.T) {
	g := cityGraph(t)
	n1, n2, n5, n8 := node(t, g, "n1"), node(t, g, "n2"), node(t, g, "n5"), node(t, g, "n8")

	require.True(t, n2.CloseLane(n5))
	r := g.FindRoute(n1, n8)
	require.NotNil(t, r)
	assert.Equal(t, []string{"n1", "n2", "n7", "n8"}, ids(r))

	require.True(t, n2.CloseLane(node(t, g, "n7")))
	assert.Nil(t, g.FindRoute(n1, n8))

	require.True(t, n2.OpenLane(n5))
	assert.Equal(t, []string{"n1", "n2", "n5", "n8"}, ids(g.FindRoute(n1, n8)))
}

func TestFindRouteResetsScratchBetweenCalls(t *testing.T) {
	g := cityGraph(t)
	n4, n6, n8 := node(t, g, "n4"), node(t, g, "n6"), node(t, g, "n8")

	assert.Equal(t, []string{"n4", "n3", "n6"}, ids(g.FindRoute(n4, n6)))
	assert.Equal(t, 5, g.FindRoute(n6, n8).Len())
	assert.Equal(t, []string{"n4", "n3", "n6"}, ids(g.FindRoute(n4, n6)))
	assert.Nil(t, g.FindRoute(n8, n8))
}
