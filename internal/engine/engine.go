// Package engine implements the traffic simulation loop.
//
// A World advances in whole ticks. Each tick has three passes:
//
//  1. Spawn pass - when the spawn cooldown has run out and the vehicle cap
//     allows, a car is created between two random endpoints, routed and
//     placed on its first lane.
//
//  2. Movement pass - every live vehicle moves toward the end of its lane,
//     keeping its distance from the vehicle ahead. Dead vehicles are reaped.
//
//  3. Release pass - every intersection advances its traffic light and hands
//     arrived vehicles from incoming lanes to outgoing ones.
//
// Run and RunJSON drive a World headlessly for a fixed number of ticks; Runner
// drives one in real time.
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/cxd309/traffic-sim/internal/mapgen"
	"github.com/cxd309/traffic-sim/internal/vehicle"
)

// NewWorldFromInput builds a world with its map and conditions set from a
// SimulationInput.
func NewWorldFromInput(input SimulationInput, opts Options) (*World, error) {
	opts.Seed = input.Seed
	if input.SpawnDelay != nil {
		opts.SpawnDelay = *input.SpawnDelay
	}
	if input.MaxVehicles != nil {
		opts.MaxVehicles = *input.MaxVehicles
	}
	if input.Profile != nil {
		opts.Profile = *input.Profile
	}
	w, err := NewWorld(opts)
	if err != nil {
		return nil, err
	}
	if input.TimeOfDay != nil {
		if err := w.SetTimeOfDay(*input.TimeOfDay); err != nil {
			return nil, err
		}
	}
	if input.Weather != "" {
		weather, err := vehicle.ParseWeather(input.Weather)
		if err != nil {
			return nil, err
		}
		if err := w.SetWeather(weather); err != nil {
			return nil, err
		}
	}

	switch {
	case input.GraphData != nil && input.Map != nil:
		return nil, fmt.Errorf("map and graph_data are mutually exclusive: %w", ErrInvalidArgument)
	case input.GraphData != nil:
		err = w.Load(*input.GraphData)
	case input.Map != nil:
		err = w.Generate(*input.Map)
	default:
		err = w.Generate(mapgen.DefaultParams)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Run executes a headless simulation and returns its summary.
func Run(input SimulationInput) (SimulationSummary, error) {
	if input.Ticks <= 0 {
		return SimulationSummary{}, fmt.Errorf("ticks %d: %w", input.Ticks, ErrInvalidArgument)
	}
	if input.LogEvery < 0 {
		return SimulationSummary{}, fmt.Errorf("log_every %d: %w", input.LogEvery, ErrInvalidArgument)
	}
	w, err := NewWorldFromInput(input, DefaultOptions())
	if err != nil {
		return SimulationSummary{}, err
	}

	var output []SimulationLogRow
	for i := 1; i <= input.Ticks; i++ {
		w.Think()
		if input.LogEvery > 0 && i%input.LogEvery == 0 {
			snap := w.Snapshot()
			output = append(output, SimulationLogRow{Tick: snap.Tick, Vehicles: snap.Vehicles})
		}
	}

	intersections, lanes := w.Layout()
	return SimulationSummary{
		Stats:         w.Stats(),
		Intersections: intersections,
		Lanes:         lanes,
		Output:        output,
	}, nil
}

// RunJSON is the primary entry point for the CLI and WASM targets.
// It accepts a JSON-encoded SimulationInput, runs the simulation, and returns a
// JSON-encoded SimulationSummary.
func RunJSON(jsonInput string) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	summary, err := Run(input)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
