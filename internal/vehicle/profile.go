package vehicle

import (
	"encoding/json"
	"fmt"

	"github.com/cxd309/traffic-sim/internal/kinematics"
)

const (
	MinLength   = 1
	MaxLength   = 50
	MinMaxSpeed = 1
	MaxMaxSpeed = 500
)

// Profile holds the static parameters of a vehicle type.
// Movement is encapsulated by the Kinem field; adding a model only requires
// implementing kinematics.MotionModel and registering it in kinematics.Decode.
type Profile struct {
	Name     string                 `json:"name"`
	Length   int                    `json:"length"`
	MaxSpeed int                    `json:"max_speed"`
	Kinem    kinematics.MotionModel `json:"-"` // set by UnmarshalJSON
}

// Car is the only vehicle type the world spawns by default.
var Car = Profile{Name: "car", Length: 2, MaxSpeed: 160, Kinem: kinematics.DefaultConstantSpeed}

// profileJSON is the raw JSON shape of a Profile, before the kinematics model is resolved.
type profileJSON struct {
	Name     string          `json:"name"`
	Length   int             `json:"length"`
	MaxSpeed int             `json:"max_speed"`
	Kinem    json.RawMessage `json:"kinematics"`
}

// UnmarshalJSON implements json.Unmarshaler for Profile. A missing
// "kinematics" object selects the default constant-speed model.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var aux profileJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m, err := kinematics.Decode(aux.Kinem)
	if err != nil {
		return fmt.Errorf("profile %q: %w", aux.Name, err)
	}
	p.Name = aux.Name
	p.Length = aux.Length
	p.MaxSpeed = aux.MaxSpeed
	p.Kinem = m
	return nil
}

// Validate checks length and speed against the allowed ranges.
func (p Profile) Validate() error {
	if p.Length < MinLength || p.Length > MaxLength {
		return fmt.Errorf("profile %q: length %d outside [%d,%d]: %w", p.Name, p.Length, MinLength, MaxLength, ErrInvalidArgument)
	}
	if p.MaxSpeed < MinMaxSpeed || p.MaxSpeed > MaxMaxSpeed {
		return fmt.Errorf("profile %q: max speed %d outside [%d,%d]: %w", p.Name, p.MaxSpeed, MinMaxSpeed, MaxMaxSpeed, ErrInvalidArgument)
	}
	return nil
}
