// Package kinematics defines the MotionModel interface that moves a vehicle
// along its lane each tick, along with built-in implementations.
//
// Adding a new model requires only implementing MotionModel and registering it
// in Decode; vehicles and the world never need to change.
package kinematics

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MotionModel is the movement contract every kinematics implementation must
// satisfy. Distances are in screen units and speed in units per 50 ticks.
type MotionModel interface {
	// StepDistance returns how far a vehicle at speed travels in one tick.
	StepDistance(speed float64) float64

	// Clearance returns the gap a follower needs to its leader before it may
	// travel step units.
	Clearance(step, leaderLength float64) float64
}

// modelDisc is the minimum JSON structure needed to read the model discriminator.
type modelDisc struct {
	Model string `json:"model"`
}

// Decode resolves a JSON kinematics object into its MotionModel using the
// "model" discriminator. An empty message yields the default model.
//
// Supported models:
//   - "constant_speed": fixed tick divisor and tailgate gap.
func Decode(raw json.RawMessage) (MotionModel, error) {
	if len(raw) == 0 {
		return DefaultConstantSpeed, nil
	}
	var disc modelDisc
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, fmt.Errorf("reading kinematics model discriminator: %w", err)
	}
	switch disc.Model {
	case ConstantSpeedModelName:
		m := DefaultConstantSpeed
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decoding %q kinematics: %w", disc.Model, err)
		}
		if m.TickDivisor <= 0 || m.Tailgate < 0 {
			return nil, fmt.Errorf("%q kinematics: tick_divisor must be positive and tailgate non-negative", disc.Model)
		}
		return m, nil
	case "":
		return nil, fmt.Errorf("kinematics: missing \"model\" field")
	default:
		return nil, fmt.Errorf("kinematics: unknown model %q", disc.Model)
	}
}

// Leader is the vehicle directly ahead in the same lane.
type Leader struct {
	Position orb.Point
	Length   float64
}

// Step is the outcome of one tick of movement.
type Step struct {
	Position orb.Point
	Heading  float64
	Moved    bool
}

// Move advances a vehicle at pos toward target for one tick. With a leader the
// vehicle only moves when the gap exceeds the model's clearance; without one it
// moves the full step or snaps onto target when closer than a step.
func Move(m MotionModel, pos, target orb.Point, heading, speed float64, leader *Leader) Step {
	step := m.StepDistance(speed)
	if leader != nil {
		if planar.Distance(pos, leader.Position) <= m.Clearance(step, leader.Length) {
			return Step{Position: pos, Heading: heading}
		}
		h := Heading(pos, target)
		return Step{Position: Advance(pos, h, step), Heading: h, Moved: true}
	}
	if pos == target {
		return Step{Position: pos, Heading: heading}
	}
	h := Heading(pos, target)
	if planar.Distance(pos, target) > step {
		return Step{Position: Advance(pos, h, step), Heading: h, Moved: true}
	}
	return Step{Position: target, Heading: h, Moved: true}
}

// Heading returns the bearing in degrees from one point to another, wrapped
// into [0, 360).
func Heading(from, to orb.Point) float64 {
	deg := math.Atan2(to[1]-from[1], to[0]-from[0]) * 180 / math.Pi
	return WrapHeading(deg)
}

// WrapHeading folds any angle into [0, 360).
func WrapHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Advance returns the point dist units from p along heading.
func Advance(p orb.Point, heading, dist float64) orb.Point {
	rad := heading * math.Pi / 180
	return orb.Point{p[0] + dist*math.Cos(rad), p[1] + dist*math.Sin(rad)}
}
