package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed data/terrain.json
var defaultTerrainJSON []byte

//go:embed data/terrain.schema.json
var terrainSchemaJSON string

// Terrain kinds the generator paints with. A catalog override must define all of them.
const (
	Grass        = "GRASS"
	TallGrass    = "TALL_GRASS"
	Flowers      = "FLOWERS"
	Tree         = "TREE"
	Path         = "PATH"
	Water        = "WATER"
	DeepWater    = "DEEP_WATER"
	Mountain     = "MOUNTAIN"
	HighMountain = "HIGH_MOUNTAIN"
	Wall         = "WALL"
	Altar        = "ALTAR"
	StairsDown   = "STAIRS_DOWN"
	StairsUp     = "STAIRS_UP"
	Door         = "DOOR"
)

var requiredTerrain = []string{
	Grass, TallGrass, Flowers, Tree, Path, Water, DeepWater,
	Mountain, HighMountain, Wall, Altar, StairsDown, StairsUp, Door,
}

// Terrain is an immutable terrain descriptor. Chunks refer to terrain by
// palette index, never by copy.
type Terrain struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Glyph       string  `json:"glyph"`
	Color       []uint8 `json:"color"`
	Walkable    bool    `json:"walkable"`
	Animated    bool    `json:"animated,omitempty"`
	Animation   string  `json:"animation,omitempty"`
}

// RGBA returns the color with alpha defaulted to opaque.
func (t Terrain) RGBA() [4]uint8 {
	out := [4]uint8{0, 0, 0, 255}
	copy(out[:], t.Color)
	return out
}

type TerrainCatalog struct {
	Palette []string
	Index   map[string]uint16
	Defs    []Terrain // by palette index
	Digest  string
}

var compiledTerrainSchema = func() *jsonschema.Schema {
	s, err := jsonschema.CompileString("terrain.schema.json", terrainSchemaJSON)
	if err != nil {
		panic(fmt.Sprintf("terrain schema: %v", err))
	}
	return s
}()

// DefaultTerrain returns the built-in catalog.
func DefaultTerrain() (*TerrainCatalog, error) {
	return ParseTerrain(defaultTerrainJSON)
}

// LoadTerrainFile loads a catalog override from disk.
func LoadTerrainFile(path string) (*TerrainCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTerrain(raw)
}

func ParseTerrain(raw []byte) (*TerrainCatalog, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("terrain.json: %w", err)
	}
	if err := compiledTerrainSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("terrain.json: %w", err)
	}

	var defs []Terrain
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("terrain.json: %w", err)
	}
	byID := make(map[string]Terrain, len(defs))
	for _, d := range defs {
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("terrain.json: duplicate id %s", d.ID)
		}
		byID[d.ID] = d
	}
	for _, id := range requiredTerrain {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("terrain.json: missing %s", id)
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c := &TerrainCatalog{
		Palette: ids,
		Index:   make(map[string]uint16, len(ids)),
		Defs:    make([]Terrain, len(ids)),
		Digest:  sha256Hex(raw),
	}
	for i, id := range ids {
		c.Index[id] = uint16(i)
		c.Defs[i] = byID[id]
	}
	return c, nil
}

func (c *TerrainCatalog) ByID(id string) (Terrain, bool) {
	i, ok := c.Index[id]
	if !ok {
		return Terrain{}, false
	}
	return c.Defs[i], true
}

// MustID resolves a palette index; only call it for kinds in requiredTerrain.
func (c *TerrainCatalog) MustID(id string) uint16 {
	i, ok := c.Index[id]
	if !ok {
		panic("catalogs: unknown terrain " + id)
	}
	return i
}

func (c *TerrainCatalog) Def(idx uint16) Terrain {
	return c.Defs[idx]
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
