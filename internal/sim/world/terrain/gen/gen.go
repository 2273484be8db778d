// Package gen turns a (chunk coordinate, world seed) pair into terrain, spawn
// points and enemy records. Generation is pure: the same inputs always yield
// the same chunk, so callers may run it on any goroutine.
package gen

import (
	"math/rand/v2"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/logic/mathx"
)

// ChunkSize is the side length of a chunk in tiles.
const ChunkSize = 32

type Point struct {
	X, Y int
}

// Enemy is the thin record an entity system turns into a live enemy.
type Enemy struct {
	Pos   Point
	Biome Biome
}

type Params struct {
	Seed int64

	SafeRadius    int // tiles from the world origin where enemy counts are halved
	SpawnMin      int
	SpawnMax      int
	SpawnAttempts int
	EnemyAttempts int
	DecorAttempts int
	DecorProb     float64
	BlobCount     int
	BiomeScale    float64
	TerrainScale  float64
}

func DefaultParams(seed int64) Params {
	return Params{
		Seed:          seed,
		SafeRadius:    64,
		SpawnMin:      2,
		SpawnMax:      5,
		SpawnAttempts: 20,
		EnemyAttempts: 30,
		DecorAttempts: 3,
		DecorProb:     0.02,
		BlobCount:     5,
		BiomeScale:    0.1,
		TerrainScale:  0.1,
	}
}

// Palette holds the catalog indices the pipeline paints with.
type Palette struct {
	Grass, TallGrass, Flowers, Tree, Path          uint16
	Water, DeepWater, Mountain, HighMountain, Wall uint16
	Altar, StairsDown, StairsUp, Door              uint16

	walkable []bool
}

func PaletteFrom(cat *catalogs.TerrainCatalog) Palette {
	p := Palette{
		Grass:        cat.MustID(catalogs.Grass),
		TallGrass:    cat.MustID(catalogs.TallGrass),
		Flowers:      cat.MustID(catalogs.Flowers),
		Tree:         cat.MustID(catalogs.Tree),
		Path:         cat.MustID(catalogs.Path),
		Water:        cat.MustID(catalogs.Water),
		DeepWater:    cat.MustID(catalogs.DeepWater),
		Mountain:     cat.MustID(catalogs.Mountain),
		HighMountain: cat.MustID(catalogs.HighMountain),
		Wall:         cat.MustID(catalogs.Wall),
		Altar:        cat.MustID(catalogs.Altar),
		StairsDown:   cat.MustID(catalogs.StairsDown),
		StairsUp:     cat.MustID(catalogs.StairsUp),
		Door:         cat.MustID(catalogs.Door),
		walkable:     make([]bool, len(cat.Defs)),
	}
	for i, d := range cat.Defs {
		p.walkable[i] = d.Walkable
	}
	return p
}

func (p Palette) Walkable(id uint16) bool {
	return int(id) < len(p.walkable) && p.walkable[id]
}

// Result is a freshly generated chunk. Tiles are row-major, local (1,1) first.
type Result struct {
	CX, CY  int
	Biome   Biome
	Tiles   []uint16
	Spawns  []Point
	Enemies []Enemy
}

type Generator struct {
	params Params
	pal    Palette
	noise  Noise
}

func NewGenerator(p Params, pal Palette) *Generator {
	return &Generator{params: p, pal: pal, noise: NewNoise(p.Seed)}
}

func (g *Generator) Params() Params { return g.params }

func (g *Generator) Palette() Palette { return g.pal }

// Generate runs the full pipeline for one chunk. Each stage finishes the whole
// grid before the next one starts.
func (g *Generator) Generate(cx, cy int) Result {
	s1, s2 := mathx.ChunkSeed(g.params.Seed, cx, cy)
	rng := rand.New(rand.NewPCG(s1, s2))

	gr := newGrid(cx, cy, g.pal)
	biome := ClassifyBiome(g.noise, cx, cy, g.params.BiomeScale)
	g.paint(gr, biome)
	g.connect(gr, rng)
	g.decorate(gr, rng)
	spawns := g.placeSpawns(gr, rng)
	enemies := g.populate(gr, biome, spawns, rng)

	return Result{
		CX:      cx,
		CY:      cy,
		Biome:   biome,
		Tiles:   gr.tiles,
		Spawns:  spawns,
		Enemies: enemies,
	}
}

// grid is the working S×S tile buffer addressed by 1-based local coordinates.
type grid struct {
	cx, cy int
	ox, oy int // world coordinates of local (1,1)
	tiles  []uint16
	pal    Palette
}

func newGrid(cx, cy int, pal Palette) *grid {
	return &grid{
		cx:    cx,
		cy:    cy,
		ox:    cx*ChunkSize + 1,
		oy:    cy*ChunkSize + 1,
		tiles: make([]uint16, ChunkSize*ChunkSize),
		pal:   pal,
	}
}

func index(lx, ly int) int {
	return (lx - 1) + (ly-1)*ChunkSize
}

func (g *grid) at(lx, ly int) uint16 { return g.tiles[index(lx, ly)] }

func (g *grid) set(lx, ly int, t uint16) { g.tiles[index(lx, ly)] = t }

func (g *grid) walkable(lx, ly int) bool { return g.pal.Walkable(g.at(lx, ly)) }

func (g *grid) world(lx, ly int) Point {
	return Point{X: g.ox + lx - 1, Y: g.oy + ly - 1}
}

// randLocal draws a local coordinate in [1,ChunkSize].
func randLocal(rng *rand.Rand) int {
	return rng.IntN(ChunkSize) + 1
}
