package graph

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Occupant is anything that can queue in a Lane and be released by an
// Intersection. Vehicles implement it.
type Occupant interface {
	ID() string
	Length() float64
	Position() orb.Point
	// Place moves the occupant to p without changing its heading.
	Place(p orb.Point)
	SetTarget(p orb.Point)
	TargetDistance() float64
	// EnterLane is called once the occupant has been queued in l.
	EnterLane(l *Lane)
	Destination() *Intersection
	// NextHop returns the intersection after from on the occupant's route, or nil.
	NextHop(from *Intersection) *Intersection
	// Reroute recomputes the route from the given intersection.
	Reroute(from *Intersection) bool
	TakesRisk() bool
	Kill()
}

// laneOffsets shift lane endpoints away from the node centre so that the two
// lanes of a road do not overlap. Indexed by the direction of travel.
var (
	laneStartOffset = [4]orb.Point{{5, -10}, {-5, 10}, {-10, -5}, {10, 5}}
	laneEndOffset   = [4]orb.Point{{5, 10}, {-5, -10}, {10, -5}, {-10, 5}}
)

// Lane is a directed edge between two intersections holding a FIFO queue of
// occupants. Its routing weight is its occupancy.
type Lane struct {
	from, to   *Intersection
	dir        Direction
	start, end orb.Point
	queue      []Occupant
}

func newLane(from, to *Intersection, dir Direction) *Lane {
	return &Lane{
		from:  from,
		to:    to,
		dir:   dir,
		start: offset(from.pos, laneStartOffset[dir]),
		end:   offset(to.pos, laneEndOffset[dir]),
	}
}

func offset(p, d orb.Point) orb.Point {
	return orb.Point{p[0] + d[0], p[1] + d[1]}
}

// From returns the intersection the lane leaves.
func (l *Lane) From() *Intersection { return l.from }

// To returns the intersection the lane enters.
func (l *Lane) To() *Intersection { return l.to }

// Direction returns the compass direction of travel.
func (l *Lane) Direction() Direction { return l.dir }

// Start returns the point where queued occupants enter.
func (l *Lane) Start() orb.Point { return l.start }

// End returns the point occupants drive toward.
func (l *Lane) End() orb.Point { return l.end }

// Len returns the number of queued occupants.
func (l *Lane) Len() int { return len(l.queue) }

// Weight is the routing cost of the lane.
func (l *Lane) Weight() int { return len(l.queue) }

// First returns the head of the queue regardless of whether it has arrived.
func (l *Lane) First() Occupant {
	if len(l.queue) == 0 {
		return nil
	}
	return l.queue[0]
}

// Last returns the tail of the queue.
func (l *Lane) Last() Occupant {
	if len(l.queue) == 0 {
		return nil
	}
	return l.queue[len(l.queue)-1]
}

// Vehicles returns a copy of the queue, head first.
func (l *Lane) Vehicles() []Occupant { return slices.Clone(l.queue) }

func (l *Lane) indexOf(v Occupant) int {
	for i, o := range l.queue {
		if o == v {
			return i
		}
	}
	return -1
}

// Contains reports whether v is queued in the lane.
func (l *Lane) Contains(v Occupant) bool { return l.indexOf(v) >= 0 }

// Ahead returns the occupant directly in front of v, or nil.
func (l *Lane) Ahead(v Occupant) Occupant {
	if i := l.indexOf(v); i > 0 {
		return l.queue[i-1]
	}
	return nil
}

// Behind returns the occupant directly behind v, or nil.
func (l *Lane) Behind(v Occupant) Occupant {
	if i := l.indexOf(v); i >= 0 && i < len(l.queue)-1 {
		return l.queue[i+1]
	}
	return nil
}

// HasRoomForVehicle reports whether v fits behind the current tail.
func (l *Lane) HasRoomForVehicle(v Occupant) bool {
	if v == nil {
		return false
	}
	last := l.Last()
	if last == nil {
		return true
	}
	return planar.Distance(l.start, last.Position()) > last.Length()+v.Length()
}

// OfferVehicle queues v at the tail, placing it at the lane start and aiming
// it at the lane end. Nothing changes when it returns false.
func (l *Lane) OfferVehicle(v Occupant) bool {
	if v == nil || l.Contains(v) || !l.HasRoomForVehicle(v) {
		return false
	}
	l.queue = append(l.queue, v)
	v.Place(l.start)
	v.SetTarget(l.end)
	v.EnterLane(l)
	return true
}

// PeekVehicle returns the head once it has reached the end of the lane.
func (l *Lane) PeekVehicle() Occupant {
	head := l.First()
	if head == nil || head.TargetDistance() != 0 {
		return nil
	}
	return head
}

// PollVehicle removes and returns the head under the same condition as PeekVehicle.
func (l *Lane) PollVehicle() Occupant {
	head := l.PeekVehicle()
	if head == nil {
		return nil
	}
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return head
}

// Clear drops every queued occupant.
func (l *Lane) Clear() {
	l.queue = nil
}
