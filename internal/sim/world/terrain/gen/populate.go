package gen

import "math/rand/v2"

// placeSpawns picks spawn candidates and keeps the ones that land on a free
// walkable tile within the attempt budget.
func (g *Generator) placeSpawns(gr *grid, rng *rand.Rand) []Point {
	n := g.params.SpawnMin
	if span := g.params.SpawnMax - g.params.SpawnMin; span > 0 {
		n += rng.IntN(span + 1)
	}
	taken := map[Point]bool{}
	var out []Point
	for i := 0; i < n; i++ {
		for a := 0; a < g.params.SpawnAttempts; a++ {
			lx, ly := randLocal(rng), randLocal(rng)
			if !gr.walkable(lx, ly) {
				continue
			}
			p := gr.world(lx, ly)
			if taken[p] {
				continue
			}
			taken[p] = true
			out = append(out, p)
			break
		}
	}
	return out
}

// populate places the chunk's initial enemies. A chunk whose origin lies in
// the safe zone around the world origin gets half as many. Enemies never
// share a tile with each other or with a spawn point; an enemy whose search
// runs out of attempts is simply not placed.
func (g *Generator) populate(gr *grid, biome Biome, spawns []Point, rng *rand.Rand) []Enemy {
	lo, hi := enemyRange(biome)
	if g.inSafeZone(gr) {
		lo, hi = max(1, lo/2), max(1, hi/2)
	}
	n := lo + rng.IntN(hi-lo+1)

	taken := make(map[Point]bool, len(spawns)+n)
	for _, p := range spawns {
		taken[p] = true
	}
	var out []Enemy
	for i := 0; i < n; i++ {
		for a := 0; a < g.params.EnemyAttempts; a++ {
			lx, ly := randLocal(rng), randLocal(rng)
			if !gr.walkable(lx, ly) {
				continue
			}
			p := gr.world(lx, ly)
			if taken[p] {
				continue
			}
			taken[p] = true
			out = append(out, Enemy{Pos: p, Biome: biome})
			break
		}
	}
	return out
}

func (g *Generator) inSafeZone(gr *grid) bool {
	r := int64(g.params.SafeRadius)
	if r <= 0 {
		return false
	}
	dx, dy := int64(gr.ox), int64(gr.oy)
	return dx*dx+dy*dy <= r*r
}
