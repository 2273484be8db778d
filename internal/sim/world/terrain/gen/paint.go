package gen

// paint fills every tile from tile-scale noise sampled at world coordinates.
func (g *Generator) paint(gr *grid, biome Biome) {
	p := g.pal
	s := g.params.TerrainScale
	for ly := 1; ly <= ChunkSize; ly++ {
		for lx := 1; lx <= ChunkSize; lx++ {
			w := gr.world(lx, ly)
			v := g.noise.Sample(float64(w.X)*s, float64(w.Y)*s, layerTerrain)
			gr.set(lx, ly, terrainFor(p, biome, v))
		}
	}
}

func terrainFor(p Palette, biome Biome, v float64) uint16 {
	switch biome {
	case BiomeForest:
		switch {
		case v > 0.6:
			return p.Tree
		case v > 0.4:
			return p.TallGrass
		}
	case BiomeMountains:
		switch {
		case v > 0.7:
			return p.HighMountain
		case v > 0.5:
			return p.Mountain
		case v > 0.4:
			return p.Wall
		}
	case BiomeLake:
		switch {
		case v > 0.6:
			return p.DeepWater
		case v > 0.3:
			return p.Water
		}
	case BiomeMeadow:
		switch {
		case v > 0.7:
			return p.Flowers
		case v > 0.5:
			return p.TallGrass
		}
	case BiomePlains:
		if v > 0.8 {
			return p.Path
		}
	}
	return p.Grass
}
