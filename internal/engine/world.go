package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/cxd309/traffic-sim/internal/drawable"
	"github.com/cxd309/traffic-sim/internal/graph"
	"github.com/cxd309/traffic-sim/internal/mapgen"
	"github.com/cxd309/traffic-sim/internal/telemetry"
	"github.com/cxd309/traffic-sim/internal/trip"
	"github.com/cxd309/traffic-sim/internal/vehicle"
)

const (
	DefaultSpawnDelay  = 5
	DefaultMaxVehicles = 500

	intersectionSize = 15
	markerRadius     = 5
)

var (
	// ErrInvalidArgument reports a setter or option outside its allowed range.
	ErrInvalidArgument = vehicle.ErrInvalidArgument
	// ErrNoMap reports an operation that needs a loaded road network.
	ErrNoMap = errors.New("no map loaded")
	// ErrUnknownIntersection reports an intersection ID not in the network.
	ErrUnknownIntersection = errors.New("unknown intersection")
)

// TripSink receives a record for every vehicle that leaves the network.
// journal.Recorder implements it.
type TripSink interface {
	Record(trip.Trip) bool
}

// Options configures a World.
type Options struct {
	// Seed drives every random choice in the world. Zero picks a seed from
	// the clock.
	Seed        uint64
	SpawnDelay  int
	MaxVehicles int
	Profile     vehicle.Profile
	Logger      zerolog.Logger
	Metrics     *telemetry.Metrics
	Trips       TripSink
}

// DefaultOptions spawn a car every 5 ticks up to 500 live vehicles.
func DefaultOptions() Options {
	return Options{
		SpawnDelay:  DefaultSpawnDelay,
		MaxVehicles: DefaultMaxVehicles,
		Profile:     vehicle.Car,
		Logger:      zerolog.Nop(),
	}
}

// World owns the road network and every vehicle on it. Think and the admin
// setters serialise on one mutex; Snapshot and Graphics read the last
// published frame without locking.
type World struct {
	mu sync.Mutex

	log        zerolog.Logger
	metrics    *telemetry.Metrics
	trips      TripSink
	ctx        context.Context
	rng        *rand.Rand
	seed       uint64
	conditions *vehicle.Conditions
	profile    vehicle.Profile

	graph     *graph.Graph
	endpoints []*graph.Intersection
	origins   []*graph.Intersection
	entities  []Entity
	starts    map[string]tripStart

	tick        uint64
	spawnDelay  int
	cooldown    int
	maxVehicles int
	yellow      bool
	stats       Stats

	snapshot atomic.Pointer[Snapshot]
}

// NewWorld creates an empty world. Load or Generate a map before it spawns
// anything.
func NewWorld(opts Options) (*World, error) {
	if opts.SpawnDelay < 0 {
		return nil, fmt.Errorf("spawn delay %d: %w", opts.SpawnDelay, ErrInvalidArgument)
	}
	if opts.MaxVehicles < 0 {
		return nil, fmt.Errorf("max vehicles %d: %w", opts.MaxVehicles, ErrInvalidArgument)
	}
	if opts.Profile.Name == "" {
		opts.Profile = vehicle.Car
	}
	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	w := &World{
		log:         opts.Logger.With().Str("component", "world").Logger(),
		metrics:     opts.Metrics,
		trips:       opts.Trips,
		ctx:         context.Background(),
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed:        seed,
		conditions:  vehicle.NewConditions(),
		profile:     opts.Profile,
		starts:      make(map[string]tripStart),
		spawnDelay:  opts.SpawnDelay,
		cooldown:    opts.SpawnDelay,
		maxVehicles: opts.MaxVehicles,
	}
	w.publish()
	return w, nil
}

// Seed returns the seed the world's random source was built from.
func (w *World) Seed() uint64 { return w.seed }

// Conditions returns the time of day and weather shared by this world's
// vehicles.
func (w *World) Conditions() *vehicle.Conditions { return w.conditions }

// Generate replaces the network with a freshly generated map.
func (w *World) Generate(p mapgen.Params) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := mapgen.Generate(p, w.rng)
	if err != nil {
		return fmt.Errorf("generating map: %w", err)
	}
	return w.load(data)
}

// Load replaces the network with the given layout. Vehicles on the old
// network are discarded.
func (w *World) Load(data graph.GraphData) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.load(data)
}

func (w *World) load(data graph.GraphData) error {
	g, err := graph.NewGraph(data, w.rng)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}
	g.SetObserver(w)
	if w.yellow {
		for _, n := range g.Intersections() {
			n.SetYellow()
		}
	}
	w.killAll()
	w.graph = g
	w.endpoints = g.Endpoints()
	w.refreshOrigins()
	w.cooldown = w.spawnDelay
	w.log.Info().
		Int("intersections", len(g.Intersections())).
		Int("lanes", len(g.Lanes())).
		Int("endpoints", len(w.endpoints)).
		Msg("map loaded")
	if len(w.endpoints) < 2 {
		w.log.Warn().Int("endpoints", len(w.endpoints)).Msg("map has too few endpoints to spawn vehicles")
	}
	w.publish()
	return nil
}

// Data exports the current layout.
func (w *World) Data() (graph.GraphData, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.graph == nil {
		return graph.GraphData{}, ErrNoMap
	}
	return w.graph.Data(), nil
}

// Layout returns the number of intersections and lanes in the network.
func (w *World) Layout() (intersections, lanes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.graph == nil {
		return 0, 0
	}
	return len(w.graph.Intersections()), len(w.graph.Lanes())
}

// Think advances the world by one tick: spawn, move vehicles, then let every
// intersection release traffic. A failing entity or intersection is logged and
// skipped. It always returns true.
func (w *World) Think() bool {
	start := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	if w.graph != nil {
		w.spawn()
		for _, e := range w.entities {
			if !e.Alive() {
				continue
			}
			w.isolate("vehicle", e.ID(), func() error {
				e.Think()
				return nil
			})
		}
		w.reap()
		for _, n := range w.graph.Intersections() {
			w.isolate("intersection", n.ID(), n.Think)
		}
		w.reap()
	}
	w.publish()
	w.metrics.Tick(w.ctx, time.Since(start), len(w.entities))
	return true
}

func (w *World) isolate(kind, id string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Str(kind, id).Uint64("tick", w.tick).Interface("panic", r).Msg("recovered from panic")
		}
	}()
	if err := fn(); err != nil {
		w.log.Error().Err(err).Str(kind, id).Uint64("tick", w.tick).Msg("think failed")
	}
}

func (w *World) reap() {
	w.entities = lo.Filter(w.entities, func(e Entity, _ int) bool { return e.Alive() })
}

// spawn places one car when the cooldown has run out and the cap allows.
func (w *World) spawn() {
	w.cooldown--
	if w.cooldown > 0 || len(w.entities) >= w.maxVehicles || len(w.origins) == 0 {
		return
	}
	w.cooldown = w.spawnDelay

	origin := w.origins[w.rng.IntN(len(w.origins))]
	dest := w.endpoints[w.rng.IntN(len(w.endpoints))]
	v, err := vehicle.New(vehicle.Env{Router: w.graph, Conditions: w.conditions, Rand: w.rng}, w.profile)
	if err != nil {
		w.log.Error().Err(err).Msg("creating vehicle")
		return
	}
	v.SetDestination(dest)
	if !v.CalculatePath(origin) || !origin.Spawn(v) {
		w.log.Debug().Str("origin", origin.ID()).Str("destination", dest.ID()).Msg("spawn discarded")
		return
	}
	w.addEntity(v)
	w.starts[v.ID()] = tripStart{origin: origin.ID(), destination: dest.ID(), tick: w.tick}
	w.stats.Spawned++
	w.metrics.Spawned(w.ctx)
}

// refreshOrigins keeps the endpoints whose lane into the network is open.
// The endpoint set itself is fixed when the map loads, so a closed endpoint
// stays a valid destination.
func (w *World) refreshOrigins() {
	w.origins = lo.Filter(w.endpoints, func(n *graph.Intersection, _ int) bool {
		return n.OutgoingCount() > 0
	})
}

func (w *World) addEntity(e Entity) {
	w.entities = append(w.entities, e)
}

// VehicleRemoved implements graph.Observer.
func (w *World) VehicleRemoved(v graph.Occupant, at *graph.Intersection, reason graph.RemovalReason) {
	switch reason {
	case graph.RemovedArrived:
		w.stats.Arrived++
	case graph.RemovedNoRoute:
		w.stats.Terminated++
	case graph.RemovedDeadlock:
		w.stats.Drained++
	}
	w.metrics.Removed(w.ctx, string(reason))
	w.log.Debug().Str("vehicle", v.ID()).Str("intersection", at.ID()).Str("reason", string(reason)).Msg("vehicle removed")

	st, ok := w.starts[v.ID()]
	if !ok {
		return
	}
	delete(w.starts, v.ID())
	if w.trips == nil {
		return
	}
	t := trip.Trip{
		VehicleID:   v.ID(),
		Origin:      st.origin,
		Destination: st.destination,
		EndedAt:     at.ID(),
		Outcome:     string(reason),
		SpawnTick:   st.tick,
		EndTick:     w.tick,
	}
	if !w.trips.Record(t) {
		w.log.Warn().Str("vehicle", v.ID()).Msg("trip not journaled")
	}
}

// DeadlockDetected implements graph.Observer.
func (w *World) DeadlockDetected(at *graph.Intersection, dir graph.Direction, v graph.Occupant) {
	w.stats.Deadlocks++
	w.metrics.Deadlock(w.ctx, at.ID())
	w.log.Warn().Str("intersection", at.ID()).Stringer("direction", dir).Str("vehicle", v.ID()).Uint64("tick", w.tick).Msg("deadlock detected")
}

// FindRoute returns the current cheapest route between two intersections, or
// nil when none exists.
func (w *World) FindRoute(from, to graph.NodeID) (*graph.Route, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, b, err := w.pair(from, to)
	if err != nil {
		return nil, err
	}
	return w.graph.FindRoute(a, b), nil
}

func (w *World) pair(from, to graph.NodeID) (*graph.Intersection, *graph.Intersection, error) {
	if w.graph == nil {
		return nil, nil, ErrNoMap
	}
	a, ok := w.graph.Intersection(from)
	if !ok {
		return nil, nil, fmt.Errorf("%q: %w", from, ErrUnknownIntersection)
	}
	b, ok := w.graph.Intersection(to)
	if !ok {
		return nil, nil, fmt.Errorf("%q: %w", to, ErrUnknownIntersection)
	}
	return a, b, nil
}

// CloseLane withdraws the lane from -> to from routing and release.
func (w *World) CloseLane(from, to graph.NodeID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, b, err := w.pair(from, to)
	if err != nil {
		return err
	}
	if !a.CloseLane(b) {
		return fmt.Errorf("closing lane %s->%s: %w", from, to, graph.ErrNotConnected)
	}
	w.refreshOrigins()
	w.log.Info().Str("from", from).Str("to", to).Msg("lane closed")
	return nil
}

// OpenLane restores a lane closed with CloseLane.
func (w *World) OpenLane(from, to graph.NodeID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, b, err := w.pair(from, to)
	if err != nil {
		return err
	}
	if !a.OpenLane(b) {
		return fmt.Errorf("opening lane %s->%s: %w", from, to, graph.ErrNotConnected)
	}
	w.refreshOrigins()
	w.log.Info().Str("from", from).Str("to", to).Msg("lane opened")
	return nil
}

// SetSpawnDelay sets the number of ticks between spawns.
func (w *World) SetSpawnDelay(ticks int) error {
	if ticks < 0 {
		return fmt.Errorf("spawn delay %d: %w", ticks, ErrInvalidArgument)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spawnDelay = ticks
	w.cooldown = min(w.cooldown, ticks)
	return nil
}

// SpawnDelay returns the number of ticks between spawns.
func (w *World) SpawnDelay() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnDelay
}

// SetMaxVehicles caps the number of live vehicles.
func (w *World) SetMaxVehicles(n int) error {
	if n < 0 {
		return fmt.Errorf("max vehicles %d: %w", n, ErrInvalidArgument)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxVehicles = n
	return nil
}

// SetTimeOfDay sets the hour, in [0,24).
func (w *World) SetTimeOfDay(hour int) error {
	return w.conditions.SetTimeOfDay(hour)
}

// SetWeather sets the weather.
func (w *World) SetWeather(weather vehicle.Weather) error {
	return w.conditions.SetWeather(weather)
}

// SetLightsYellow forces every intersection into yellow.
func (w *World) SetLightsYellow() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setYellow(true)
}

// RemoveYellowLights lifts a forced yellow.
func (w *World) RemoveYellowLights() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setYellow(false)
}

func (w *World) setYellow(on bool) {
	w.yellow = on
	if w.graph == nil {
		return
	}
	for _, n := range w.graph.Intersections() {
		if on {
			n.SetYellow()
		} else {
			n.RemoveYellow()
		}
	}
	w.publish()
}

// ClearMap removes every vehicle while keeping the network.
func (w *World) ClearMap() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.killAll()
	w.publish()
}

func (w *World) killAll() {
	for _, e := range w.entities {
		if o, ok := e.(graph.Occupant); ok {
			o.Kill()
		}
	}
	w.entities = nil
	clear(w.starts)
	if w.graph != nil {
		w.graph.Clear()
	}
}

// publish rebuilds the presentation snapshot. Callers hold mu.
func (w *World) publish() {
	var (
		lanes []*graph.Lane
		nodes []*graph.Intersection
	)
	if w.graph != nil {
		lanes = w.graph.Lanes()
		nodes = w.graph.Intersections()
	}
	live := lo.Filter(w.entities, func(e Entity, _ int) bool { return e.Alive() })

	ds := make([]drawable.Drawable, 0, len(lanes)+len(nodes)+len(live)+1)
	for _, l := range lanes {
		s, e := l.Start(), l.End()
		ds = append(ds, drawable.Line(drawable.Gray, s[0], s[1], e[0], e[1]))
	}
	for _, n := range nodes {
		c := drawable.Gray
		if n.Light().Yellow {
			c = drawable.Yellow
		}
		p := n.Position()
		ds = append(ds, drawable.Rect(p[0], p[1], 0, c, intersectionSize, intersectionSize))
	}
	for _, e := range live {
		ds = append(ds, e.Drawable())
	}
	if len(live) > 0 {
		oldest := live[0].Drawable()
		ds = append(ds, drawable.Circle(oldest.X, oldest.Y, drawable.Yellow, markerRadius))
	}

	stats := w.stats
	stats.Tick = w.tick
	stats.Live = len(live)
	w.snapshot.Store(&Snapshot{
		Tick:      w.tick,
		Drawables: ds,
		Vehicles: lo.FilterMap(live, func(e Entity, _ int) (vehicle.Log, bool) {
			r, ok := e.(reporter)
			if !ok {
				return vehicle.Log{}, false
			}
			return r.GetLog(), true
		}),
		Stats: stats,
	})
}

// Snapshot returns a copy of the last published frame.
func (w *World) Snapshot() Snapshot {
	s := *w.snapshot.Load()
	s.Drawables = slices.Clone(s.Drawables)
	s.Vehicles = slices.Clone(s.Vehicles)
	return s
}

// Graphics returns the drawables of the last published frame.
func (w *World) Graphics() []drawable.Drawable {
	return slices.Clone(w.snapshot.Load().Drawables)
}

// Stats returns the totals as of the last published frame.
func (w *World) Stats() Stats {
	return w.snapshot.Load().Stats
}
