package drawable

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	r := Rect(1, 2, 45, Gray, 3, 4)
	assert.Equal(t, Drawable{Kind: KindRect, X: 1, Y: 2, Yaw: 45, Width: 3, Height: 4, Color: Gray}, r)

	c := Circle(5, 6, Yellow, 5)
	assert.Equal(t, KindCircle, c.Kind)
	assert.Equal(t, 5.0, c.Radius)

	l := Line(Black, 0, 1, 2, 3)
	assert.Equal(t, [4]float64{0, 1, 2, 3}, [4]float64{l.X, l.Y, l.EndX, l.EndY})

	assert.Equal(t, KindDot, Dot(1, 1, White).Kind)
	assert.Equal(t, "hi", Text(0, 0, White, "hi").Text)
}

func TestJSONOmitsUnusedFields(t *testing.T) {
	raw, err := json.Marshal(Dot(1, 2, Black))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"dot","x":1,"y":2,"color":{"r":0,"g":0,"b":0}}`, string(raw))
}

func TestRandomColorAvoidsSimilar(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		c := RandomColor(rng, Gray, White)
		assert.True(t, c.bright())
		assert.False(t, c.similarToAny([]Color{Gray, White}))
	}
}
