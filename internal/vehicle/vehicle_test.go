package vehicle

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/traffic-sim/internal/graph"
	"github.com/cxd309/traffic-sim/internal/kinematics"
)

func testEnv(router Router) Env {
	return Env{Router: router, Conditions: NewConditions(), Rand: rand.New(rand.NewPCG(3, 5))}
}

// lineGraph returns a -> b -> c laid out west to east.
func lineGraph(t *testing.T) (*graph.Graph, []*graph.Intersection) {
	t.Helper()
	g, err := graph.NewGraph(graph.GraphData{
		Nodes: []graph.Node{
			{ID: "a", Loc: graph.Coordinate{X: 0, Y: 100}},
			{ID: "b", Loc: graph.Coordinate{X: 300, Y: 100}},
			{ID: "c", Loc: graph.Coordinate{X: 600, Y: 100}},
		},
		Edges: []graph.Edge{{U: "a", V: "b"}, {U: "b", V: "c"}},
	}, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	return g, g.Intersections()
}

func TestNewValidatesProfile(t *testing.T) {
	env := testEnv(nil)
	bad := []Profile{
		{Name: "short", Length: 0, MaxSpeed: 100},
		{Name: "long", Length: 51, MaxSpeed: 100},
		{Name: "still", Length: 2, MaxSpeed: 0},
		{Name: "rocket", Length: 2, MaxSpeed: 501},
	}
	for _, p := range bad {
		_, err := New(env, p)
		assert.ErrorIs(t, err, ErrInvalidArgument, p.Name)
	}
	for _, p := range []Profile{{Length: 1, MaxSpeed: 1}, {Length: 50, MaxSpeed: 500}} {
		v, err := New(env, p)
		require.NoError(t, err)
		assert.NotNil(t, v.Profile().Kinem)
	}
}

func TestNewCar(t *testing.T) {
	env := testEnv(nil)
	seen := map[string]bool{}
	for range 50 {
		v, err := NewCar(env)
		require.NoError(t, err)
		assert.Equal(t, 2.0, v.Length())
		assert.Equal(t, 160, v.MaxSpeed())
		assert.GreaterOrEqual(t, v.Speed(), 80.0)
		assert.Less(t, v.Speed(), 160.0)
		assert.Less(t, v.Bathroom(), initialNeed)
		assert.Less(t, v.Hunger(), initialNeed)
		assert.GreaterOrEqual(t, v.YearModel(), 1940)
		assert.LessOrEqual(t, v.YearModel(), 2014)
		assert.True(t, v.Alive())
		assert.False(t, seen[v.ID()], "ids are unique")
		seen[v.ID()] = true
	}
}

func TestIDsFollowTheSeed(t *testing.T) {
	first, second := testEnv(nil), testEnv(nil)
	for range 10 {
		a, err := NewCar(first)
		require.NoError(t, err)
		b, err := NewCar(second)
		require.NoError(t, err)
		assert.Equal(t, a.ID(), b.ID())

		id, err := uuid.Parse(a.ID())
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), id.Version())
	}

	other := Env{Conditions: NewConditions(), Rand: rand.New(rand.NewPCG(4, 5))}
	a, err := NewCar(testEnv(nil))
	require.NoError(t, err)
	b, err := NewCar(other)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestThinkMovesTowardTarget(t *testing.T) {
	v, err := NewCar(testEnv(nil))
	require.NoError(t, err)
	v.Place(orb.Point{0, 0})
	v.SetTarget(orb.Point{0, 100})

	require.True(t, v.Think())
	assert.InDelta(t, v.Speed()/50, v.Position()[1], 1e-9)
	assert.InDelta(t, 90, v.Heading(), 1e-9)
	assert.Equal(t, StateDriving, v.State())

	v.Place(orb.Point{0, 99.5})
	require.True(t, v.Think())
	assert.Equal(t, orb.Point{0, 100}, v.Position())
	assert.Zero(t, v.TargetDistance())
	assert.Equal(t, StateWaiting, v.State())
}

func TestThinkStopsWhenCrashedOrDead(t *testing.T) {
	v, err := NewCar(testEnv(nil))
	require.NoError(t, err)
	v.SetTarget(orb.Point{100, 0})

	v.Crash()
	assert.False(t, v.Think())
	assert.Equal(t, orb.Point{0, 0}, v.Position())
	assert.Equal(t, StateCrashed, v.State())

	w, _ := NewCar(testEnv(nil))
	w.Kill()
	assert.False(t, w.Think())
	assert.Equal(t, StateDead, w.State())
}

func TestThinkFollowsVehicleAhead(t *testing.T) {
	g, nodes := lineGraph(t)
	env := testEnv(g)
	lane := nodes[0].LaneTo(nodes[1])

	leader, _ := NewCar(env)
	follower, _ := NewCar(env)
	require.True(t, lane.OfferVehicle(leader))
	leader.Place(orb.Point{leader.Position()[0] + 12, leader.Position()[1]})
	require.True(t, lane.OfferVehicle(follower))
	assert.Same(t, lane, follower.Lane())

	start := follower.Position()
	require.True(t, follower.Think())
	assert.Equal(t, start, follower.Position(), "gap of 12 is inside the clearance")

	leader.Place(orb.Point{start[0] + 30, start[1]})
	require.True(t, follower.Think())
	assert.Greater(t, follower.Position()[0], start[0])
}

func TestCalculatePath(t *testing.T) {
	g, nodes := lineGraph(t)
	v, _ := NewCar(testEnv(g))

	assert.False(t, v.CalculatePath(nodes[0]), "no destination")

	v.SetDestination(nodes[2])
	require.True(t, v.CalculatePath(nodes[0]))
	assert.Same(t, nodes[1], v.NextHop(nodes[0]))
	assert.Equal(t, 3, v.Route().Len())

	require.True(t, nodes[0].Spawn(v))
	assert.Equal(t, 2, v.route.Pointer(), "cursor follows the lane end")

	v.SetDestination(nodes[0])
	assert.False(t, v.CalculatePath(nodes[2]))
	assert.Nil(t, v.Route())
	assert.Nil(t, v.NextHop(nodes[2]))
}

func TestRouteIsACopy(t *testing.T) {
	g, nodes := lineGraph(t)
	v, _ := NewCar(testEnv(g))
	v.SetDestination(nodes[2])
	require.True(t, v.CalculatePath(nodes[0]))

	r := v.Route()
	r.Append(nodes[0], 5)
	assert.Equal(t, 3, v.Route().Len())
}

func TestHeadingWraps(t *testing.T) {
	v, _ := NewCar(testEnv(nil))
	v.SetHeading(370)
	assert.InDelta(t, 10, v.Heading(), 1e-9)
	v.SetHeading(-90)
	assert.InDelta(t, 270, v.Heading(), 1e-9)
}

func TestGiveSnickers(t *testing.T) {
	v, _ := NewCar(testEnv(nil))
	v.hunger, v.bathroom = 800, 100
	v.GiveSnickers()
	assert.Equal(t, 400, v.Hunger())
	assert.Equal(t, 110, v.Bathroom())

	v.bathroom = 995
	v.GiveSnickers()
	assert.Equal(t, MaxNeed, v.Bathroom())
}

func TestSetDrunkWrapsOnce(t *testing.T) {
	v, _ := NewCar(testEnv(nil))
	v.SetRisk(Risk{Name: "never", Take: func(Factors) bool { return false }})
	v.SetDrunk()
	v.SetDrunk()
	assert.True(t, v.Drunk())
	assert.Equal(t, "drunk never", v.Risk().Name)

	took := 0
	for range 1000 {
		if v.TakesRisk() {
			took++
		}
	}
	assert.InDelta(t, 250, took, 80)
}

func TestTakesRiskUsesWorldConditions(t *testing.T) {
	env := testEnv(nil)
	v, _ := NewCar(env)
	var got Factors
	v.SetRisk(Risk{Name: "spy", Take: func(f Factors) bool { got = f; return true }})
	v.SetStress(Stress{Name: "fixed", Calculate: func(int, int, int) int { return 42 }})
	require.NoError(t, env.Conditions.SetWeather(Snow))
	require.NoError(t, env.Conditions.SetTimeOfDay(22))

	assert.True(t, v.TakesRisk())
	assert.Equal(t, Factors{Stress: 42, YearModel: v.YearModel(), Weather: Snow, TimeOfDay: 22}, got)
}

func TestGetLog(t *testing.T) {
	g, nodes := lineGraph(t)
	v, _ := NewCar(testEnv(g))
	v.SetDestination(nodes[2])
	v.Place(orb.Point{4, 5})

	l := v.GetLog()
	assert.Equal(t, v.ID(), l.ID)
	assert.Equal(t, 4.0, l.X)
	assert.Equal(t, "c", l.Destination)

	d := v.Drawable()
	assert.Equal(t, v.Color(), d.Color)
	assert.Equal(t, 3.0, d.Width)
}

func TestProfileUnmarshal(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`{"name":"bus","length":12,"max_speed":90,
		"kinematics":{"model":"constant_speed","tick_divisor":40,"tailgate":6}}`), &p))
	assert.Equal(t, "bus", p.Name)
	assert.Equal(t, kinematics.ConstantSpeed{TickDivisor: 40, Tailgate: 6}, p.Kinem)
	require.NoError(t, p.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"name":"car","length":2,"max_speed":160}`), &p))
	assert.Equal(t, kinematics.DefaultConstantSpeed, p.Kinem)

	assert.Error(t, json.Unmarshal([]byte(`{"name":"ufo","kinematics":{"model":"warp"}}`), &p))
}
