// Package mapgen grows random road layouts on a grid.
//
// A single seed intersection is placed at random; every pass, each
// intersection may sprout a straight road in a free direction that ends at a
// new intersection or joins an existing one. Straight-through intersections
// with exactly two roads are folded away at the end.
package mapgen

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/cxd309/traffic-sim/internal/graph"
)

// ErrInvalidParams reports generator parameters that cannot produce a map.
var ErrInvalidParams = errors.New("invalid map parameters")

// Params controls the generator. Width and Height are in screen units,
// Density is the grid cell size, MaxLength bounds road length in cells and
// Passes is the number of growth rounds.
type Params struct {
	Width     int `json:"width" mapstructure:"width"`
	Height    int `json:"height" mapstructure:"height"`
	Density   int `json:"density" mapstructure:"density"`
	MaxLength int `json:"max_length" mapstructure:"maxLength"`
	Passes    int `json:"passes" mapstructure:"passes"`
}

// DefaultParams fit an 800x600 view.
var DefaultParams = Params{Width: 800, Height: 600, Density: 50, MaxLength: 5, Passes: 100}

// Validate checks that the grid has at least two cells each way.
func (p Params) Validate() error {
	switch {
	case p.Density <= 0:
		return fmt.Errorf("density %d: %w", p.Density, ErrInvalidParams)
	case p.Width/p.Density < 2 || p.Height/p.Density < 2:
		return fmt.Errorf("%dx%d at density %d leaves fewer than 2 cells per axis: %w", p.Width, p.Height, p.Density, ErrInvalidParams)
	case p.MaxLength < 1:
		return fmt.Errorf("max length %d: %w", p.MaxLength, ErrInvalidParams)
	case p.Passes < 1:
		return fmt.Errorf("passes %d: %w", p.Passes, ErrInvalidParams)
	}
	return nil
}

type content int

const (
	empty content = iota
	road
	junction
)

type cell struct {
	x, y    int
	content content
	links   [4]*cell // indexed by graph.Direction
}

func (c *cell) degree() int {
	d := 0
	for _, l := range c.links {
		if l != nil {
			d++
		}
	}
	return d
}

// steps are grid offsets per graph.Direction; y grows southward.
var steps = [4][2]int{
	graph.North: {0, -1},
	graph.South: {0, 1},
	graph.West:  {-1, 0},
	graph.East:  {1, 0},
}

// clockwise turns a direction a quarter to the right.
var clockwise = [4]graph.Direction{
	graph.North: graph.East,
	graph.East:  graph.South,
	graph.South: graph.West,
	graph.West:  graph.North,
}

type grid struct {
	w, h  int
	cells [][]*cell
	rng   *rand.Rand
}

func newGrid(w, h int, rng *rand.Rand) *grid {
	g := &grid{w: w, h: h, rng: rng, cells: make([][]*cell, w)}
	for x := range g.cells {
		g.cells[x] = make([]*cell, h)
		for y := range g.cells[x] {
			g.cells[x][y] = &cell{x: x, y: y}
		}
	}
	return g
}

func (g *grid) neighbor(c *cell, d graph.Direction) *cell {
	x, y := c.x+steps[d][0], c.y+steps[d][1]
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return nil
	}
	return g.cells[x][y]
}

// link joins a to b, which must lie on a straight line in direction d from a.
func link(a, b *cell, d graph.Direction) bool {
	back := d.Opposite()
	if a.links[d] != nil || b.links[back] != nil {
		return false
	}
	a.links[d] = b
	b.links[back] = a
	return true
}

// grow may extend a road from c.
func (g *grid) grow(c *cell, maxLength int) {
	deg := c.degree()
	if deg >= 4 || g.rng.IntN(100) >= 100-25*deg {
		return
	}
	length := 1
	if maxLength > 1 {
		length += g.rng.IntN(maxLength - 1)
	}

	dir := graph.Direction(g.rng.IntN(4))
	free := false
	for range 4 {
		if n := g.neighbor(c, dir); c.links[dir] == nil && n != nil && n.content == empty {
			free = true
			break
		}
		dir = clockwise[dir]
	}
	if !free {
		return
	}

	cur := c
	for range length {
		next := g.neighbor(cur, dir)
		if next == nil || next.content == road {
			break
		}
		if next.content == junction {
			if link(c, next, dir) {
				return
			}
			break
		}
		next.content = road
		cur = next
	}
	if cur != c {
		cur.content = junction
		link(c, cur, dir)
	}
}

// fold removes junctions that merely continue a straight road.
func (g *grid) fold() {
	for _, col := range g.cells {
		for _, c := range col {
			if c.content != junction || c.degree() != 2 {
				continue
			}
			for _, pair := range [][2]graph.Direction{{graph.North, graph.South}, {graph.West, graph.East}} {
				a, b := c.links[pair[0]], c.links[pair[1]]
				if a == nil || b == nil {
					continue
				}
				a.links[pair[0].Opposite()] = b
				b.links[pair[1].Opposite()] = a
				c.links = [4]*cell{}
				c.content = road
				break
			}
		}
	}
}

func nodeID(c *cell) graph.NodeID { return fmt.Sprintf("n%d_%d", c.x, c.y) }

// Generate grows a layout with two-way roads. The same rng state always
// yields the same layout.
func Generate(p Params, rng *rand.Rand) (graph.GraphData, error) {
	if err := p.Validate(); err != nil {
		return graph.GraphData{}, err
	}
	g := newGrid(p.Width/p.Density, p.Height/p.Density, rng)
	seed := g.cells[rng.IntN(g.w-1)][rng.IntN(g.h-1)]
	seed.content = junction

	for range p.Passes {
		for _, col := range g.cells {
			for _, c := range col {
				if c.content == junction {
					g.grow(c, p.MaxLength)
				}
			}
		}
	}
	g.fold()

	var data graph.GraphData
	half := float64(p.Density) / 2
	for _, col := range g.cells {
		for _, c := range col {
			if c.content != junction {
				continue
			}
			data.Nodes = append(data.Nodes, graph.Node{
				ID:  nodeID(c),
				Loc: graph.Coordinate{X: float64(c.x*p.Density) + half, Y: float64(c.y*p.Density) + half},
			})
		}
	}
	for _, col := range g.cells {
		for _, c := range col {
			if c.content != junction {
				continue
			}
			for _, to := range c.links {
				if to != nil {
					data.Edges = append(data.Edges, graph.Edge{U: nodeID(c), V: nodeID(to)})
				}
			}
		}
	}
	return data, nil
}
