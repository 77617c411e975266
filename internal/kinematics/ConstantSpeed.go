package kinematics

// ConstantSpeedModelName is the JSON discriminator string for ConstantSpeed.
const ConstantSpeedModelName = "constant_speed"

// ConstantSpeed implements MotionModel with a fixed per-tick step derived from
// the vehicle's cruising speed. This is the default model.
//
// JSON discriminator: "model": "constant_speed"
type ConstantSpeed struct {
	TickDivisor float64 `json:"tick_divisor"` // step = speed / TickDivisor
	Tailgate    float64 `json:"tailgate"`     // minimum gap kept to the leader's tail
}

// DefaultConstantSpeed moves speed/50 units per tick and keeps 10 units of gap.
var DefaultConstantSpeed = ConstantSpeed{TickDivisor: 50, Tailgate: 10}

func (c ConstantSpeed) StepDistance(speed float64) float64 {
	if c.TickDivisor <= 0 {
		return 0
	}
	return speed / c.TickDivisor
}

func (c ConstantSpeed) Clearance(step, leaderLength float64) float64 {
	return step + c.Tailgate + leaderLength
}
