package visibility

import "github.com/Carbonadoks/claudecoderpg/internal/sim/world/logic/mathx"

// HasLineOfSight walks a Bresenham line from (x1,y1) to (x2,y2). Only tiles
// strictly between the endpoints can block; doors never do.
func (e *Engine) HasLineOfSight(x1, y1, x2, y2 int) bool {
	return LineOfSight(e.terrain, x1, y1, x2, y2)
}

func LineOfSight(t Terrain, x1, y1, x2, y2 int) bool {
	path := Line(x1, y1, x2, y2)
	if len(path) <= 2 {
		return true
	}
	for _, p := range path[1 : len(path)-1] {
		if !t.IsWalkable(p.X, p.Y) && !t.IsDoor(p.X, p.Y) {
			return false
		}
	}
	return true
}

// Line returns the Bresenham tiles from (x1,y1) to (x2,y2), both included.
// A zero-length line is the single start tile.
func Line(x1, y1, x2, y2 int) []Point {
	dx := mathx.AbsInt(x2 - x1)
	dy := -mathx.AbsInt(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy

	out := make([]Point, 0, mathx.MaxInt(dx, -dy)+1)
	out = append(out, Point{X: x1, Y: y1})
	x, y := x1, y1
	for x != x2 || y != y2 {
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		out = append(out, Point{X: x, Y: y})
	}
	return out
}
