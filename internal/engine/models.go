package engine

import (
	"github.com/cxd309/traffic-sim/internal/drawable"
	"github.com/cxd309/traffic-sim/internal/graph"
	"github.com/cxd309/traffic-sim/internal/mapgen"
	"github.com/cxd309/traffic-sim/internal/vehicle"
)

// SimulationInput is the JSON-serialisable input to a headless run. Exactly
// one of Map and GraphData selects the layout; with neither, a map is
// generated from mapgen.DefaultParams.
type SimulationInput struct {
	Seed        uint64           `json:"seed"`
	Ticks       int              `json:"ticks"`
	SpawnDelay  *int             `json:"spawn_delay,omitempty"`
	MaxVehicles *int             `json:"max_vehicles,omitempty"`
	TimeOfDay   *int             `json:"time_of_day,omitempty"`
	Weather     string           `json:"weather,omitempty"`
	LogEvery    int              `json:"log_every,omitempty"` // ticks between log rows; 0 disables
	Profile     *vehicle.Profile `json:"profile,omitempty"`
	Map         *mapgen.Params   `json:"map,omitempty"`
	GraphData   *graph.GraphData `json:"graph_data,omitempty"`
}

// Stats are the running totals of a world.
type Stats struct {
	Tick       uint64 `json:"ticks"`
	Spawned    int    `json:"spawned"`
	Arrived    int    `json:"arrived"`
	Terminated int    `json:"terminated"`
	Deadlocks  int    `json:"deadlocks"`
	Drained    int    `json:"drained"`
	Live       int    `json:"live"`
}

// SimulationLogRow is the state of every vehicle at one tick.
type SimulationLogRow struct {
	Tick     uint64        `json:"tick"`
	Vehicles []vehicle.Log `json:"vehicles"`
}

// SimulationSummary is the complete output of a headless run.
type SimulationSummary struct {
	Stats
	Intersections int                `json:"intersections"`
	Lanes         int                `json:"lanes"`
	Output        []SimulationLogRow `json:"output,omitempty"`
}

// Snapshot is everything a presentation layer needs to draw one frame.
// Snapshots are immutable once published.
type Snapshot struct {
	Tick      uint64              `json:"tick"`
	Drawables []drawable.Drawable `json:"drawables"`
	Vehicles  []vehicle.Log       `json:"vehicles"`
	Stats     Stats               `json:"stats"`
}

// Entity is anything the world advances each tick.
type Entity interface {
	ID() string
	// Think advances the entity one tick; false means it can no longer act.
	Think() bool
	Alive() bool
	Drawable() drawable.Drawable
}

// reporter is implemented by entities that can report a vehicle.Log.
type reporter interface {
	GetLog() vehicle.Log
}

// tripStart is what the world remembers about a spawned vehicle until it
// leaves the network.
type tripStart struct {
	origin      graph.NodeID
	destination graph.NodeID
	tick        uint64
}
