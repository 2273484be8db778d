package world

import "github.com/Carbonadoks/claudecoderpg/internal/sim/world/logic/mathx"

const (
	startSearchRadius   = 16
	startSearchAttempts = 64
)

// place picks the starting tile: a cached spawn point near the origin when
// one is resident, otherwise a random walkable tile, otherwise the nearest
// walkable tile found by scanning outward.
func (s *Session) place() Point {
	s.store.LoadAround(1, 1, s.cfg.LoadRadius)
	if p, ok := s.store.RandomSpawnPoint(s.rng); ok {
		return p
	}
	s.log.Debug("no spawn point resident, searching for a start tile")

	occupied := map[Point]bool{}
	for _, e := range s.store.EnemiesNear(1, 1, startSearchRadius) {
		occupied[e.Pos] = true
	}
	free := func(p Point) bool {
		return !occupied[p] && s.store.IsWalkable(p.X, p.Y)
	}

	for i := 0; i < startSearchAttempts; i++ {
		p := Point{
			X: 1 + s.rng.IntN(2*startSearchRadius+1) - startSearchRadius,
			Y: 1 + s.rng.IntN(2*startSearchRadius+1) - startSearchRadius,
		}
		if free(p) {
			return p
		}
	}
	return scanOutward(Point{X: 1, Y: 1}, free)
}

// scanOutward visits Chebyshev rings around c in a fixed order until ok
// accepts a tile. Every chunk has walkable midlines, so it terminates.
func scanOutward(c Point, ok func(Point) bool) Point {
	if ok(c) {
		return c
	}
	for r := 1; ; r++ {
		for y := c.Y - r; y <= c.Y+r; y++ {
			for x := c.X - r; x <= c.X+r; x++ {
				if mathx.Chebyshev(x, y, c.X, c.Y) != r {
					continue
				}
				if p := (Point{X: x, Y: y}); ok(p) {
					return p
				}
			}
		}
	}
}
