package vehicle

import "math/rand/v2"

// Factors is everything a risk strategy may weigh.
type Factors struct {
	Stress    int
	YearModel int
	Weather   Weather
	TimeOfDay int
}

// RiskFunc decides whether a driver jumps a yellow light.
type RiskFunc func(Factors) bool

// StressFunc folds a driver's needs into a stress level.
type StressFunc func(bathroom, hunger, timeOfDay int) int

// Risk is a named risk strategy.
type Risk struct {
	Name string
	Take RiskFunc
}

// Stress is a named stress strategy.
type Stress struct {
	Name      string
	Calculate StressFunc
}

const (
	panicStress   = 1900
	riskThreshold = 1100
	calmStress    = 100
	calmBonus     = 50
	needTolerance = 500
)

var weatherRisk = map[Weather]int{
	Rain:     100,
	Sunshine: 400,
	Cloudy:   200,
	Snow:     150,
	Storm:    50,
}

// officeHours reports whether drivers are calmer at this hour.
func officeHours(hour int) bool { return hour > 9 && hour < 16 }

// AverageRisk is the risk appetite of an ordinary driver.
func AverageRisk(rng *rand.Rand) Risk {
	return Risk{Name: "average", Take: func(f Factors) bool {
		if f.Stress >= panicStress {
			return true
		}
		risk := weatherRisk[f.Weather]
		stress := float64(f.Stress)
		if officeHours(f.TimeOfDay) {
			stress *= 0.75
		}
		if stress <= calmStress {
			risk += calmBonus
		} else {
			risk += int(stress/2 + rng.Float64()*stress/2)
		}
		return risk > riskThreshold
	}}
}

// drunkChance is the probability a drunk driver takes a risk the base
// strategy refused.
const drunkChance = 0.25

// Drunk wraps base so that a refusal is overridden a quarter of the time.
func Drunk(base Risk, rng *rand.Rand) Risk {
	return Risk{Name: "drunk " + base.Name, Take: func(f Factors) bool {
		return base.Take(f) || rng.Float64() < drunkChance
	}}
}

// NormalStress counts each need fully up to 500 and partially beyond.
func NormalStress(rng *rand.Rand) Stress {
	need := func(n int) float64 {
		if n <= needTolerance {
			return float64(n)
		}
		return float64(n)/2 + rng.Float64()*float64(n)/2
	}
	return Stress{Name: "normal", Calculate: func(bathroom, hunger, timeOfDay int) int {
		s := need(bathroom) + need(hunger)
		if officeHours(timeOfDay) {
			s *= 0.75
		}
		return int(s)
	}}
}
