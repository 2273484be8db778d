package gen

type Biome string

const (
	BiomeForest    Biome = "FOREST"
	BiomeMountains Biome = "MOUNTAINS"
	BiomeLake      Biome = "LAKE"
	BiomeMeadow    Biome = "MEADOW"
	BiomePlains    Biome = "PLAINS"
)

// Noise layers. Terrain painting shares one layer across every biome so
// neighbouring chunks of the same biome meet without a seam.
const (
	layerBiomeA  = 0
	layerBiomeB  = 1
	layerBiomeC  = 2
	layerTerrain = 10
)

// BiomeValue combines three chunk-scale samples into a scalar in [-1,1].
// Sampling depends only on the chunk coordinate and the noise seed.
func BiomeValue(n Noise, cx, cy int, scale float64) float64 {
	x, y := float64(cx)*scale, float64(cy)*scale
	a := n.Sample(x, y, layerBiomeA)
	b := n.Sample(x*0.5+100, y*0.5+100, layerBiomeB)
	c := n.Sample(x*2-100, y*2-100, layerBiomeC)
	v := (0.5*a+0.3*b+0.2*c)*2 - 1
	// Simplex output bunches around the middle; stretch it so the outer
	// bands (mountains, lakes) actually occur.
	v *= 1.6
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return v
}

func BiomeFor(v float64) Biome {
	switch {
	case v > 0.7:
		return BiomeMountains
	case v > 0.4:
		return BiomeForest
	case v > 0.1:
		return BiomeMeadow
	case v > -0.2:
		return BiomePlains
	default:
		return BiomeLake
	}
}

func ClassifyBiome(n Noise, cx, cy int, scale float64) Biome {
	return BiomeFor(BiomeValue(n, cx, cy, scale))
}

// enemyRange is the inclusive enemy count range for a biome.
func enemyRange(b Biome) (int, int) {
	switch b {
	case BiomeForest:
		return 2, 4
	case BiomeMountains:
		return 1, 3
	case BiomeLake:
		return 1, 2
	case BiomeMeadow:
		return 2, 5
	case BiomePlains:
		return 3, 6
	default:
		return 2, 4
	}
}
