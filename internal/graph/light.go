package graph

import "math/rand/v2"

// LightMode selects how an intersection arbitrates its incoming lanes.
type LightMode int

const (
	// LightNone services every incoming lane each tick.
	LightNone LightMode = iota
	// LightFourWay alternates the north-south and west-east pairs.
	LightFourWay
	// LightRotating cycles single corners NE, ES, SW, WN.
	LightRotating
)

func (m LightMode) String() string {
	switch m {
	case LightFourWay:
		return "four_way"
	case LightRotating:
		return "rotating"
	}
	return "none"
}

// Phase is the set of incoming slots a light currently serves.
type Phase int

const (
	PhaseNS Phase = iota
	PhaseWE
	PhaseNE
	PhaseES
	PhaseSW
	PhaseWN
)

var phaseSlots = map[Phase][2]Direction{
	PhaseNS: {North, South},
	PhaseWE: {West, East},
	PhaseNE: {North, East},
	PhaseES: {East, South},
	PhaseSW: {South, West},
	PhaseWN: {West, North},
}

var phaseNames = map[Phase]string{
	PhaseNS: "NS", PhaseWE: "WE", PhaseNE: "NE", PhaseES: "ES", PhaseSW: "SW", PhaseWN: "WN",
}

func (p Phase) String() string { return phaseNames[p] }

// Slots returns the two incoming slots of the phase.
func (p Phase) Slots() [2]Direction { return phaseSlots[p] }

func (p Phase) next() Phase {
	switch p {
	case PhaseNS:
		return PhaseWE
	case PhaseWE:
		return PhaseNS
	case PhaseNE:
		return PhaseES
	case PhaseES:
		return PhaseSW
	case PhaseSW:
		return PhaseWN
	default:
		return PhaseNE
	}
}

const (
	minLightDelay  = 50
	lightDelaySpan = 75
)

type lightState struct {
	mode  LightMode
	phase Phase
	delay int
	tick  int
	// which lane of a rotating phase is served next
	alternate int
}

func newLightState(rng *rand.Rand) lightState {
	return lightState{delay: minLightDelay + rng.IntN(lightDelaySpan)}
}

func (s *lightState) activate(rng *rand.Rand) {
	s.tick = 0
	if rng.IntN(2) == 0 {
		s.mode = LightRotating
		s.phase = PhaseNE
		return
	}
	s.mode = LightFourWay
	if rng.IntN(2) == 0 {
		s.phase = PhaseNS
	} else {
		s.phase = PhaseWE
	}
}

func (s *lightState) yellowFrom() int { return 4 * s.delay / 5 }

// advance moves the light one tick forward and returns the slots to serve,
// whether they are in yellow, and whether only the first present lane of the
// slots may be served.
func (s *lightState) advance() (slots []Direction, yellow, single bool) {
	if s.tick >= s.delay {
		s.tick = 0
		s.phase = s.phase.next()
	}
	yellow = s.tick >= s.yellowFrom()
	s.tick++
	pair := s.phase.Slots()
	if s.mode == LightFourWay || yellow {
		return pair[:], yellow, false
	}
	i := s.alternate
	s.alternate = 1 - i
	return []Direction{pair[i], pair[1-i]}, false, true
}

// LightStatus is a read-only view of an intersection's light.
type LightStatus struct {
	Mode   LightMode
	Phase  Phase
	Delay  int
	Tick   int
	Yellow bool
}

// Light returns the current light status.
func (n *Intersection) Light() LightStatus {
	s := n.light
	return LightStatus{
		Mode:   s.mode,
		Phase:  s.phase,
		Delay:  s.delay,
		Tick:   s.tick,
		Yellow: n.yellow || (s.mode != LightNone && s.tick >= s.yellowFrom()),
	}
}

// SetLightDelay overrides the phase length. Values below 1 are ignored.
func (n *Intersection) SetLightDelay(d int) {
	if d > 0 {
		n.light.delay = d
	}
}

// ActivateLights switches the intersection to mode immediately, starting at
// the mode's first phase.
func (n *Intersection) ActivateLights(mode LightMode) {
	n.light.mode = mode
	n.light.tick = 0
	n.light.alternate = 0
	switch mode {
	case LightFourWay:
		n.light.phase = PhaseNS
	case LightRotating:
		n.light.phase = PhaseNE
	}
}
