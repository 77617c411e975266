package graph

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
)

// Direction is a compass slot on an intersection.
type Direction int

const (
	North Direction = iota
	South
	West
	East
)

// Directions lists every slot in index order.
var Directions = [4]Direction{North, South, West, East}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case West:
		return "west"
	case East:
		return "east"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Opposite returns the slot facing d.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

// DirectionTo returns the slot on from that faces to. Vertical offset wins over
// horizontal. It reports false when the points coincide.
func DirectionTo(from, to orb.Point) (Direction, bool) {
	switch {
	case to[1] < from[1]:
		return North, true
	case to[1] > from[1]:
		return South, true
	case to[0] < from[0]:
		return West, true
	case to[0] > from[0]:
		return East, true
	}
	return 0, false
}

// RemovalReason says why an intersection took a vehicle off the network.
type RemovalReason string

const (
	RemovedArrived  RemovalReason = "arrived"
	RemovedNoRoute  RemovalReason = "no_route"
	RemovedDeadlock RemovalReason = "deadlock"
)

// Observer is notified of removals and deadlocks as they happen.
type Observer interface {
	VehicleRemoved(v Occupant, at *Intersection, reason RemovalReason)
	DeadlockDetected(at *Intersection, dir Direction, v Occupant)
}

// Intersection is a node of the road network. It owns its outgoing lanes and
// releases vehicles from its incoming lanes according to its light state.
type Intersection struct {
	id  NodeID
	pos orb.Point

	in     [4]*Lane
	out    [4]*Lane
	closed [4]*Lane

	light    lightState
	yellow   bool
	deadlock [4]deadlockCounter

	observer Observer
	rng      *rand.Rand

	// routing scratch, owned by the Graph that runs FindRoute
	minDistance float64
	previous    *Intersection
	heapIndex   int
}

func newIntersection(id NodeID, pos orb.Point, rng *rand.Rand) *Intersection {
	return &Intersection{
		id:          id,
		pos:         pos,
		rng:         rng,
		light:       newLightState(rng),
		minDistance: math.Inf(1),
		heapIndex:   -1,
	}
}

func (n *Intersection) String() string { return n.id }

// ID returns the intersection identifier.
func (n *Intersection) ID() NodeID { return n.id }

// Position returns the centre of the intersection.
func (n *Intersection) Position() orb.Point { return n.pos }

// Incoming returns the lane entering through slot d, or nil.
func (n *Intersection) Incoming(d Direction) *Lane { return n.in[d] }

// Outgoing returns the open lane leaving through slot d, or nil.
func (n *Intersection) Outgoing(d Direction) *Lane { return n.out[d] }

// IncomingCount returns the number of incoming lanes.
func (n *Intersection) IncomingCount() int { return countLanes(n.in) }

// OutgoingCount returns the number of open outgoing lanes.
func (n *Intersection) OutgoingCount() int { return countLanes(n.out) }

func countLanes(lanes [4]*Lane) int {
	c := 0
	for _, l := range lanes {
		if l != nil {
			c++
		}
	}
	return c
}

// Neighbors returns the intersections reachable over open outgoing lanes.
func (n *Intersection) Neighbors() []*Intersection {
	var out []*Intersection
	for _, l := range n.out {
		if l != nil {
			out = append(out, l.to)
		}
	}
	return out
}

// LaneTo returns the open outgoing lane ending at to, or nil.
func (n *Intersection) LaneTo(to *Intersection) *Lane {
	if to == nil {
		return nil
	}
	for _, l := range n.out {
		if l != nil && l.to == to {
			return l
		}
	}
	return nil
}

// Connect creates the lane from n to other. It returns nil when the nodes
// coincide or when the facing slot on either side is already used.
func (n *Intersection) Connect(other *Intersection) *Lane {
	if other == nil || other == n {
		return nil
	}
	dir, ok := DirectionTo(n.pos, other.pos)
	if !ok {
		return nil
	}
	back := dir.Opposite()
	if n.out[dir] != nil || n.closed[dir] != nil || other.in[back] != nil {
		return nil
	}
	l := newLane(n, other, dir)
	n.out[dir] = l
	other.in[back] = l
	return l
}

// CloseLane withdraws the lane toward to from routing and release.
func (n *Intersection) CloseLane(to *Intersection) bool {
	l := n.LaneTo(to)
	if l == nil {
		return false
	}
	n.closed[l.dir] = l
	n.out[l.dir] = nil
	return true
}

// OpenLane restores a lane previously closed with CloseLane.
func (n *Intersection) OpenLane(to *Intersection) bool {
	if to == nil {
		return false
	}
	for d, l := range n.closed {
		if l == nil || l.to != to {
			continue
		}
		if n.out[d] != nil {
			return false
		}
		n.out[d] = l
		n.closed[d] = nil
		return true
	}
	return false
}

// IsClosed reports whether the lane toward to is currently closed.
func (n *Intersection) IsClosed(to *Intersection) bool {
	for _, l := range n.closed {
		if l != nil && l.to == to {
			return true
		}
	}
	return false
}

// SetYellow forces every incoming lane into yellow until RemoveYellow.
func (n *Intersection) SetYellow() { n.yellow = true }

// RemoveYellow lifts a forced yellow.
func (n *Intersection) RemoveYellow() { n.yellow = false }

// Yellow reports whether a forced yellow is in effect.
func (n *Intersection) Yellow() bool { return n.yellow }

// Spawn places v on the outgoing lane toward its next hop.
func (n *Intersection) Spawn(v Occupant) bool {
	if v == nil {
		return false
	}
	l := n.LaneTo(v.NextHop(n))
	if l == nil {
		return false
	}
	return l.OfferVehicle(v)
}

// Think advances the intersection by one tick.
func (n *Intersection) Think() error {
	if n.light.mode == LightNone && n.IncomingCount() > 2 {
		n.light.activate(n.rng)
	}
	if n.yellow {
		n.light.tick = 0
		return n.serve(Directions[:], true, false)
	}
	if n.light.mode == LightNone {
		return n.serve(Directions[:], false, false)
	}
	return n.serve(n.light.advance())
}

func (n *Intersection) serve(slots []Direction, yellow, single bool) error {
	for _, d := range slots {
		if n.in[d] == nil {
			continue
		}
		if err := n.release(d, yellow); err != nil {
			return err
		}
		if single {
			return nil
		}
	}
	return nil
}

type releaseResult int

const (
	releaseIdle releaseResult = iota
	releaseMoved
	releaseRemoved
	releaseHeld
	releaseBlocked
)

// release moves the arrived head of the lane in slot d onto its next lane,
// removing it when it has arrived or cannot continue.
func (n *Intersection) release(d Direction, yellow bool) error {
	lane := n.in[d]
	v := lane.PeekVehicle()
	if v == nil {
		n.deadlock[d].reset()
		return nil
	}
	res, err := n.releaseHead(lane, v, yellow)
	if err != nil {
		return err
	}
	switch res {
	case releaseBlocked:
		if n.deadlock[d].observe(v) {
			return n.repairDeadlock(lane, d, v)
		}
	case releaseHeld:
	default:
		n.deadlock[d].reset()
	}
	return nil
}

func (n *Intersection) releaseHead(lane *Lane, v Occupant, yellow bool) (releaseResult, error) {
	if v.Destination() == n {
		return n.remove(lane, v, RemovedArrived)
	}
	next := v.NextHop(n)
	if next == nil {
		return n.remove(lane, v, RemovedNoRoute)
	}
	out := n.LaneTo(next)
	if out == nil {
		if !v.Reroute(n) {
			return n.remove(lane, v, RemovedNoRoute)
		}
		if out = n.LaneTo(v.NextHop(n)); out == nil {
			return n.remove(lane, v, RemovedNoRoute)
		}
	}
	if yellow && !v.TakesRisk() {
		return releaseHeld, nil
	}
	if !out.HasRoomForVehicle(v) {
		return releaseBlocked, nil
	}
	if lane.PollVehicle() != v {
		return releaseIdle, fmt.Errorf("intersection %s: head of lane from %s changed during release", n.id, lane.from.id)
	}
	if !out.OfferVehicle(v) {
		return releaseIdle, fmt.Errorf("intersection %s: lane to %s refused vehicle %s after room check: %w", n.id, out.to.id, v.ID(), ErrCapacity)
	}
	return releaseMoved, nil
}

func (n *Intersection) remove(lane *Lane, v Occupant, reason RemovalReason) (releaseResult, error) {
	if lane.PollVehicle() != v {
		return releaseIdle, fmt.Errorf("intersection %s: cannot remove %s, not at head of lane", n.id, v.ID())
	}
	v.Kill()
	if n.observer != nil {
		n.observer.VehicleRemoved(v, n, reason)
	}
	return releaseRemoved, nil
}

// repairDeadlock reroutes the stuck head of lane; if the new route still leads
// into the blocked lane, or there is none, the vehicle is drained.
func (n *Intersection) repairDeadlock(lane *Lane, d Direction, v Occupant) error {
	if n.observer != nil {
		n.observer.DeadlockDetected(n, d, v)
	}
	blocked := n.LaneTo(v.NextHop(n))
	if v.Reroute(n) {
		if out := n.LaneTo(v.NextHop(n)); out != nil && out != blocked {
			return nil
		}
	}
	_, err := n.remove(lane, v, RemovedDeadlock)
	return err
}

// clear empties every incoming lane and resets the deadlock counters.
func (n *Intersection) clear() {
	for d := range n.in {
		if n.in[d] != nil {
			n.in[d].Clear()
		}
		n.deadlock[d].reset()
	}
}
