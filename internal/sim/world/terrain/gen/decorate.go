package gen

import "math/rand/v2"

// decorate occasionally swaps a walkable tile for a feature. Midline tiles
// are left alone so connectivity never depends on a feature's walkability.
func (g *Generator) decorate(gr *grid, rng *rand.Rand) {
	features := [...]uint16{g.pal.Altar, g.pal.StairsDown, g.pal.StairsUp, g.pal.Door}
	for i := 0; i < g.params.DecorAttempts; i++ {
		if rng.Float64() >= g.params.DecorProb {
			continue
		}
		lx, ly := randLocal(rng), randLocal(rng)
		f := features[rng.IntN(len(features))]
		if lx == mid || ly == mid || !gr.walkable(lx, ly) {
			continue
		}
		gr.set(lx, ly, f)
	}
}
