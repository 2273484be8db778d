// Package visibility casts rays from a single observer over chunked terrain
// and keeps two sparse maps: the current per-tile intensity and the permanent
// record of tiles seen at least once.
package visibility

import "math"

const (
	RayCount = 180
	StepSize = 0.5

	// ObserverIntensity is both the brightness of the observer's own tile and
	// the zero-distance brightness of a ray.
	ObserverIntensity = 3.5
	Falloff           = 0.3
	SmoothFactor      = 0.95
)

type Point struct {
	X, Y int
}

// Terrain is the read side of the chunk store the engine needs. Lookups must
// succeed for every coordinate.
type Terrain interface {
	IsWalkable(x, y int) bool
	IsDoor(x, y int) bool
}

// Engine is not safe for concurrent use; one goroutine owns it.
type Engine struct {
	terrain Terrain

	visible  map[Point]float64
	explored map[Point]struct{}

	origin    Point
	viewRange int
}

func New(t Terrain) *Engine {
	return &Engine{
		terrain:  t,
		visible:  map[Point]float64{},
		explored: map[Point]struct{}{},
	}
}

func (e *Engine) opaque(x, y int) bool {
	return !e.terrain.IsWalkable(x, y) && !e.terrain.IsDoor(x, y)
}

// Recompute replaces the visible set for an observer at (x,y). Tiles lit by
// the previous call are folded into the explored set first.
func (e *Engine) Recompute(x, y, viewRange int) {
	for p, v := range e.visible {
		if v > 0 {
			e.explored[p] = struct{}{}
		}
	}
	e.visible = make(map[Point]float64, len(e.visible))
	e.origin = Point{X: x, Y: y}
	e.viewRange = viewRange

	if viewRange > 0 {
		for i := 0; i < RayCount; i++ {
			angle := 2 * math.Pi * float64(i) / RayCount
			e.cast(x, y, math.Cos(angle), math.Sin(angle), viewRange)
		}
	}
	e.visible[e.origin] = ObserverIntensity

	if viewRange > 0 {
		e.smooth(viewRange + 2)
	}
}

func (e *Engine) cast(x, y int, dx, dy float64, viewRange int) {
	prev := Point{X: x, Y: y}
	steps := 2 * viewRange
	for s := 1; s <= steps; s++ {
		d := float64(s) * StepSize
		p := Point{
			X: x + int(math.Round(dx*d)),
			Y: y + int(math.Round(dy*d)),
		}
		if p == prev {
			continue
		}
		prev = p

		b := ObserverIntensity - (d/float64(viewRange))*Falloff
		if b < 0 {
			b = 0
		}
		if b > e.visible[p] {
			e.visible[p] = b
		}
		if e.opaque(p.X, p.Y) {
			return
		}
	}
}

// smooth spreads a share of each lit, see-through tile's brightness to its
// eight neighbours. Sources are read from a snapshot, so spread never chains.
func (e *Engine) smooth(radius int) {
	type source struct {
		p Point
		v float64
	}
	var sources []source
	for p, v := range e.visible {
		if v <= 0 {
			continue
		}
		if p.X < e.origin.X-radius || p.X > e.origin.X+radius || p.Y < e.origin.Y-radius || p.Y > e.origin.Y+radius {
			continue
		}
		if e.opaque(p.X, p.Y) {
			continue
		}
		sources = append(sources, source{p: p, v: v})
	}
	for _, s := range sources {
		spread := s.v * SmoothFactor
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				n := Point{X: s.p.X + dx, Y: s.p.Y + dy}
				if spread > e.visible[n] {
					e.visible[n] = spread
				}
			}
		}
	}
}

func (e *Engine) IsVisible(x, y int) bool {
	return e.visible[Point{X: x, Y: y}] > 0
}

func (e *Engine) IsExplored(x, y int) bool {
	_, ok := e.explored[Point{X: x, Y: y}]
	return ok
}

func (e *Engine) IntensityAt(x, y int) float64 {
	return e.visible[Point{X: x, Y: y}]
}

func (e *Engine) VisibleCount() int {
	n := 0
	for _, v := range e.visible {
		if v > 0 {
			n++
		}
	}
	return n
}

func (e *Engine) ExploredCount() int { return len(e.explored) }

// Origin returns the observer position and view range of the last Recompute.
func (e *Engine) Origin() (Point, int) { return e.origin, e.viewRange }

// Cell is one tile of a Window snapshot.
type Cell struct {
	X, Y      int
	Intensity float64
	Explored  bool
}

// Window copies the rectangle [x0,x1]×[y0,y1] row by row. Explored is also
// true for tiles that are visible right now.
func (e *Engine) Window(x0, y0, x1, y1 int) []Cell {
	if x1 < x0 || y1 < y0 {
		return nil
	}
	out := make([]Cell, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			v := e.IntensityAt(x, y)
			out = append(out, Cell{
				X:         x,
				Y:         y,
				Intensity: v,
				Explored:  v > 0 || e.IsExplored(x, y),
			})
		}
	}
	return out
}
