package gen

import "math/rand/v2"

const mid = ChunkSize / 2

// connect guarantees the chunk center is reachable from all four edge
// midpoints: both midlines become walkable, and each edge gets a connector
// from a random point in its middle third to the nearest midline so that
// neighbouring chunks have a chance to line their connectors up.
func (g *Generator) connect(gr *grid, rng *rand.Rand) {
	for i := 1; i <= ChunkSize; i++ {
		g.clear(gr, i, mid, g.pal.Path)
		g.clear(gr, mid, i, g.pal.Path)
	}

	third := ChunkSize / 3
	offset := func() int { return third + 1 + rng.IntN(ChunkSize-2*third) }

	top, bottom, left, right := offset(), offset(), offset(), offset()
	for y := 1; y <= mid; y++ {
		g.clear(gr, top, y, g.pal.Path)
	}
	for y := mid; y <= ChunkSize; y++ {
		g.clear(gr, bottom, y, g.pal.Path)
	}
	for x := 1; x <= mid; x++ {
		g.clear(gr, x, left, g.pal.Path)
	}
	for x := mid; x <= ChunkSize; x++ {
		g.clear(gr, x, right, g.pal.Path)
	}

	// Blobs break up impassable pockets the midlines missed.
	for i := 0; i < g.params.BlobCount; i++ {
		bx := 2 + rng.IntN(ChunkSize-2)
		by := 2 + rng.IntN(ChunkSize-2)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				g.clear(gr, bx+dx, by+dy, g.pal.Grass)
			}
		}
	}
}

// clear replaces a blocking tile with t and leaves walkable tiles alone.
func (g *Generator) clear(gr *grid, lx, ly int, t uint16) {
	if !gr.walkable(lx, ly) {
		gr.set(lx, ly, t)
	}
}

// Reachable reports whether (tx,ty) can be reached from (fx,fy) over
// 4-connected walkable tiles of one chunk. Coordinates are 1-based local.
func Reachable(tiles []uint16, pal Palette, fx, fy, tx, ty int) bool {
	walk := func(x, y int) bool {
		return x >= 1 && y >= 1 && x <= ChunkSize && y <= ChunkSize && pal.Walkable(tiles[index(x, y)])
	}
	if !walk(fx, fy) || !walk(tx, ty) {
		return false
	}
	seen := make([]bool, ChunkSize*ChunkSize)
	queue := []Point{{X: fx, Y: fy}}
	seen[index(fx, fy)] = true
	dirs := [4]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p.X == tx && p.Y == ty {
			return true
		}
		for _, d := range dirs {
			nx, ny := p.X+d.X, p.Y+d.Y
			if !walk(nx, ny) || seen[index(nx, ny)] {
				continue
			}
			seen[index(nx, ny)] = true
			queue = append(queue, Point{X: nx, Y: ny})
		}
	}
	return false
}
