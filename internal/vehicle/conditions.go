package vehicle

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Weather affects how willing drivers are to take risks.
type Weather int32

const (
	Sunshine Weather = iota
	Rain
	Cloudy
	Snow
	Storm
)

var weatherNames = [...]string{"sunshine", "rain", "cloudy", "snow", "storm"}

func (w Weather) String() string {
	if w < 0 || int(w) >= len(weatherNames) {
		return fmt.Sprintf("Weather(%d)", int32(w))
	}
	return weatherNames[w]
}

// Valid reports whether w is a known weather.
func (w Weather) Valid() bool { return w >= 0 && int(w) < len(weatherNames) }

// ParseWeather maps a case-insensitive name to a Weather.
func ParseWeather(s string) (Weather, error) {
	for i, name := range weatherNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Weather(i), nil
		}
	}
	return 0, fmt.Errorf("weather %q: %w", s, ErrInvalidArgument)
}

const (
	// DefaultTimeOfDay is the hour a world starts at.
	DefaultTimeOfDay = 8
	hoursPerDay      = 24
)

// Conditions are the time of day and weather shared by every vehicle in one
// world. They are safe for concurrent use.
type Conditions struct {
	timeOfDay atomic.Int32
	weather   atomic.Int32
}

// NewConditions starts at DefaultTimeOfDay in sunshine.
func NewConditions() *Conditions {
	c := &Conditions{}
	c.timeOfDay.Store(DefaultTimeOfDay)
	c.weather.Store(int32(Sunshine))
	return c
}

// TimeOfDay returns the current hour in [0,24).
func (c *Conditions) TimeOfDay() int { return int(c.timeOfDay.Load()) }

// SetTimeOfDay sets the hour. Values outside [0,24) are rejected.
func (c *Conditions) SetTimeOfDay(hour int) error {
	if hour < 0 || hour >= hoursPerDay {
		return fmt.Errorf("time of day %d outside [0,%d): %w", hour, hoursPerDay, ErrInvalidArgument)
	}
	c.timeOfDay.Store(int32(hour))
	return nil
}

// Weather returns the current weather.
func (c *Conditions) Weather() Weather { return Weather(c.weather.Load()) }

// SetWeather sets the weather.
func (c *Conditions) SetWeather(w Weather) error {
	if !w.Valid() {
		return fmt.Errorf("weather %d: %w", int32(w), ErrInvalidArgument)
	}
	c.weather.Store(int32(w))
	return nil
}
