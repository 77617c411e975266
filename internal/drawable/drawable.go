// Package drawable holds the immutable render records the simulation emits
// for presentation layers.
package drawable

import (
	"math"
	"math/rand/v2"
)

// Kind discriminates the shape a Drawable describes.
type Kind string

const (
	KindRect   Kind = "rect"
	KindCircle Kind = "circle"
	KindLine   Kind = "line"
	KindDot    Kind = "dot"
	KindText   Kind = "text"
)

// Color is an opaque RGB colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	Black  = Color{0, 0, 0}
	Gray   = Color{128, 128, 128}
	Yellow = Color{255, 255, 0}
	White  = Color{255, 255, 255}
)

// Drawable is a value record; copies never share state with the simulation.
// Fields that do not apply to Kind are zero.
type Drawable struct {
	Kind   Kind    `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Yaw    float64 `json:"yaw,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	EndX   float64 `json:"end_x,omitempty"`
	EndY   float64 `json:"end_y,omitempty"`
	Text   string  `json:"text,omitempty"`
	Color  Color   `json:"color"`
}

func Rect(x, y, yaw float64, c Color, width, height float64) Drawable {
	return Drawable{Kind: KindRect, X: x, Y: y, Yaw: yaw, Color: c, Width: width, Height: height}
}

func Circle(x, y float64, c Color, radius float64) Drawable {
	return Drawable{Kind: KindCircle, X: x, Y: y, Color: c, Radius: radius}
}

func Line(c Color, startX, startY, endX, endY float64) Drawable {
	return Drawable{Kind: KindLine, X: startX, Y: startY, EndX: endX, EndY: endY, Color: c}
}

func Dot(x, y float64, c Color) Drawable {
	return Drawable{Kind: KindDot, X: x, Y: y, Color: c}
}

func Text(x, y float64, c Color, text string) Drawable {
	return Drawable{Kind: KindText, X: x, Y: y, Color: c, Text: text}
}

// similarDistance is the RGB distance under which two colours count as alike.
const similarDistance = 30

// RandomColor draws a bright colour that is not similar to any in avoid.
func RandomColor(rng *rand.Rand, avoid ...Color) Color {
	for {
		c := Color{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256))}
		if c.bright() && !c.similarToAny(avoid) {
			return c
		}
	}
}

func (c Color) bright() bool {
	return int(c.R)+int(c.G)+int(c.B) > 3*128
}

func (c Color) similarToAny(others []Color) bool {
	for _, o := range others {
		dr := float64(c.R) - float64(o.R)
		dg := float64(c.G) - float64(o.G)
		db := float64(c.B) - float64(o.B)
		if math.Sqrt(dr*dr+dg*dg+db*db) < similarDistance {
			return true
		}
	}
	return false
}
