// Package vehicle defines the vehicles that travel the road network: their
// state, movement each tick, and the driver behaviour that decides whether to
// jump a yellow light.
package vehicle

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/cxd309/traffic-sim/internal/drawable"
	"github.com/cxd309/traffic-sim/internal/graph"
	"github.com/cxd309/traffic-sim/internal/kinematics"
)

// ErrInvalidArgument reports a parameter outside its allowed range.
var ErrInvalidArgument = errors.New("invalid argument")

// State describes what a vehicle is currently doing.
type State string

const (
	StateDriving State = "driving"
	StateWaiting State = "waiting"
	StateCrashed State = "crashed"
	StateDead    State = "dead"
)

const (
	MaxNeed      = 1000
	initialNeed  = 999
	snickersDose = 10
	minYear      = 1940
	maxYear      = 2014
	drawSize     = 3
)

// Router finds routes between intersections.
type Router interface {
	FindRoute(from, to *graph.Intersection) *graph.Route
}

// Env is what a vehicle needs from the world it lives in.
type Env struct {
	Router     Router
	Conditions *Conditions
	Rand       *rand.Rand
}

// Vehicle is a car, truck or anything else that queues in lanes. It
// implements graph.Occupant.
type Vehicle struct {
	id      string
	profile Profile
	env     Env

	pos     orb.Point
	target  orb.Point
	heading float64
	speed   float64
	color   drawable.Color

	bathroom  int
	hunger    int
	yearModel int
	risk      Risk
	stress    Stress
	drunk     bool

	alive   bool
	crashed bool

	lane        *graph.Lane
	destination *graph.Intersection
	route       *graph.Route
}

var _ graph.Occupant = (*Vehicle)(nil)

// New creates a vehicle of the given profile with randomised speed, needs,
// colour and year model.
func New(env Env, p Profile) (*Vehicle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Kinem == nil {
		p.Kinem = kinematics.DefaultConstantSpeed
	}
	rng := env.Rand
	id, err := uuid.NewRandomFromReader(randReader{rng})
	if err != nil {
		return nil, fmt.Errorf("vehicle id: %w", err)
	}
	half := float64(p.MaxSpeed) / 2
	return &Vehicle{
		id:        id.String(),
		profile:   p,
		env:       env,
		speed:     half + rng.Float64()*half,
		color:     drawable.RandomColor(rng, drawable.Gray),
		bathroom:  rng.IntN(initialNeed),
		hunger:    rng.IntN(initialNeed),
		yearModel: minYear + rng.IntN(maxYear-minYear+1),
		risk:      AverageRisk(rng),
		stress:    NormalStress(rng),
		alive:     true,
	}, nil
}

// randReader draws bytes from the world's source so that IDs repeat with the
// seed.
type randReader struct{ rng *rand.Rand }

func (r randReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := r.rng.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

// NewCar creates a vehicle with the Car profile.
func NewCar(env Env) (*Vehicle, error) { return New(env, Car) }

func (v *Vehicle) ID() string          { return v.id }
func (v *Vehicle) Profile() Profile    { return v.profile }
func (v *Vehicle) Length() float64     { return float64(v.profile.Length) }
func (v *Vehicle) MaxSpeed() int       { return v.profile.MaxSpeed }
func (v *Vehicle) Speed() float64      { return v.speed }
func (v *Vehicle) Position() orb.Point { return v.pos }
func (v *Vehicle) Place(p orb.Point)   { v.pos = p }
func (v *Vehicle) Target() orb.Point   { return v.target }
func (v *Vehicle) Heading() float64    { return v.heading }
func (v *Vehicle) Color() drawable.Color {
	return v.color
}
func (v *Vehicle) YearModel() int { return v.yearModel }
func (v *Vehicle) Bathroom() int  { return v.bathroom }
func (v *Vehicle) Hunger() int    { return v.hunger }
func (v *Vehicle) Lane() *graph.Lane {
	return v.lane
}

// SetHeading sets the heading, wrapped into [0,360).
func (v *Vehicle) SetHeading(deg float64) { v.heading = kinematics.WrapHeading(deg) }

// SetTarget sets the point the vehicle drives toward.
func (v *Vehicle) SetTarget(p orb.Point) { v.target = p }

// TargetDistance is the straight-line distance to the target.
func (v *Vehicle) TargetDistance() float64 { return planar.Distance(v.pos, v.target) }

// EnterLane records lane membership and moves the route cursor to the lane's
// end intersection.
func (v *Vehicle) EnterLane(l *graph.Lane) {
	v.lane = l
	if v.route != nil && l != nil {
		v.route.SetPointer(v.route.IndexOf(l.To()))
	}
}

func (v *Vehicle) Destination() *graph.Intersection { return v.destination }

func (v *Vehicle) SetDestination(d *graph.Intersection) { v.destination = d }

// Route returns a copy of the current route, or nil.
func (v *Vehicle) Route() *graph.Route {
	if v.route == nil {
		return nil
	}
	return v.route.Clone()
}

// NextHop returns the intersection after from on the route.
func (v *Vehicle) NextHop(from *graph.Intersection) *graph.Intersection {
	if v.route == nil {
		return nil
	}
	next, _ := v.route.Next(from)
	return next
}

// CalculatePath asks the router for a route from the given intersection to the
// destination. On failure the vehicle keeps no route.
func (v *Vehicle) CalculatePath(from *graph.Intersection) bool {
	v.route = nil
	if v.env.Router == nil || v.destination == nil {
		return false
	}
	v.route = v.env.Router.FindRoute(from, v.destination)
	return v.route != nil
}

// Reroute implements graph.Occupant.
func (v *Vehicle) Reroute(from *graph.Intersection) bool { return v.CalculatePath(from) }

// StressLevel evaluates the stress strategy against current needs.
func (v *Vehicle) StressLevel() int {
	return v.stress.Calculate(v.bathroom, v.hunger, v.env.Conditions.TimeOfDay())
}

// TakesRisk asks the risk strategy whether to jump a yellow light now.
func (v *Vehicle) TakesRisk() bool {
	return v.risk.Take(Factors{
		Stress:    v.StressLevel(),
		YearModel: v.yearModel,
		Weather:   v.env.Conditions.Weather(),
		TimeOfDay: v.env.Conditions.TimeOfDay(),
	})
}

// Risk returns the current risk strategy.
func (v *Vehicle) Risk() Risk { return v.risk }

// SetRisk replaces the risk strategy.
func (v *Vehicle) SetRisk(r Risk) { v.risk = r }

// SetStress replaces the stress strategy.
func (v *Vehicle) SetStress(s Stress) { v.stress = s }

// SetDrunk wraps the current risk strategy with the drunk modifier once.
func (v *Vehicle) SetDrunk() {
	if v.drunk {
		return
	}
	v.drunk = true
	v.risk = Drunk(v.risk, v.env.Rand)
}

func (v *Vehicle) Drunk() bool { return v.drunk }

// GiveSnickers halves hunger at the cost of a fuller bladder.
func (v *Vehicle) GiveSnickers() {
	v.hunger /= 2
	v.bathroom = min(v.bathroom+snickersDose, MaxNeed)
}

// Kill marks the vehicle for removal by the world.
func (v *Vehicle) Kill() { v.alive = false }

func (v *Vehicle) Alive() bool { return v.alive }

// Crash stops the vehicle in place; it stays on the road as an obstacle.
func (v *Vehicle) Crash() { v.crashed = true }

func (v *Vehicle) Crashed() bool { return v.crashed }

// State summarises the vehicle for presentation.
func (v *Vehicle) State() State {
	switch {
	case !v.alive:
		return StateDead
	case v.crashed:
		return StateCrashed
	case v.TargetDistance() == 0:
		return StateWaiting
	}
	return StateDriving
}

// Think moves the vehicle one tick along its lane. It returns false when the
// vehicle can no longer act.
func (v *Vehicle) Think() bool {
	if v.crashed || !v.alive {
		return false
	}
	var leader *kinematics.Leader
	if v.lane != nil {
		if ahead := v.lane.Ahead(v); ahead != nil {
			leader = &kinematics.Leader{Position: ahead.Position(), Length: ahead.Length()}
		}
	}
	step := kinematics.Move(v.profile.Kinem, v.pos, v.target, v.heading, v.speed, leader)
	v.pos = step.Position
	v.SetHeading(step.Heading)
	return true
}

// Drawable renders the vehicle as a small rotated square.
func (v *Vehicle) Drawable() drawable.Drawable {
	return drawable.Rect(v.pos[0], v.pos[1], v.heading, v.color, drawSize, drawSize)
}

// Log is a point-in-time snapshot of a vehicle.
type Log struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Heading     float64 `json:"heading"`
	Speed       float64 `json:"speed"`
	State       State   `json:"state"`
	Destination string  `json:"destination,omitempty"`
	Drunk       bool    `json:"drunk,omitempty"`
}

// GetLog returns a point-in-time snapshot of the vehicle state.
func (v *Vehicle) GetLog() Log {
	l := Log{
		ID:      v.id,
		X:       v.pos[0],
		Y:       v.pos[1],
		Heading: v.heading,
		Speed:   v.speed,
		State:   v.State(),
		Drunk:   v.drunk,
	}
	if v.destination != nil {
		l.Destination = v.destination.ID()
	}
	return l
}
