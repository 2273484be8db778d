package store

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	genpkg "github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
)

const (
	ChunkSize         = genpkg.ChunkSize
	MaxLoadedChunks   = 50
	DefaultLoadRadius = 2

	// lruBound only backs the recency list; the store enforces MaxLoaded
	// itself so it can skip pinned chunks.
	lruBound = 1 << 20
)

type Point = genpkg.Point
type Enemy = genpkg.Enemy

type ChunkKey struct {
	CX int
	CY int
}

// Chunk is a resident S×S block. Terrain never changes after generation;
// Enemies shrink as enemies are defeated and are guarded by the owning Store.
type Chunk struct {
	CX, CY  int
	Biome   genpkg.Biome
	Blocks  []uint16 // len = S*S, row-major from local (1,1)
	Spawns  []Point
	Enemies []Enemy

	hash [32]byte
}

func (c *Chunk) Key() ChunkKey { return ChunkKey{CX: c.CX, CY: c.CY} }

func (c *Chunk) index(lx, ly int) int {
	return (lx - 1) + (ly-1)*ChunkSize
}

// At returns the palette index at 1-based local coordinates.
func (c *Chunk) At(lx, ly int) uint16 {
	return c.Blocks[c.index(lx, ly)]
}

// Digest hashes the terrain. Equal digests mean tile-for-tile equal chunks.
func (c *Chunk) Digest() [32]byte {
	if c.hash == ([32]byte{}) {
		c.hash = DigestBlocks(c.Blocks)
	}
	return c.hash
}

// DigestBlocks is the SHA-256 of the tiles as little-endian uint16s.
func DigestBlocks(blocks []uint16) [32]byte {
	h := sha256.New()
	var tmp [2]byte
	for _, v := range blocks {
		binary.LittleEndian.PutUint16(tmp[:], v)
		h.Write(tmp[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func chunkFrom(r genpkg.Result) *Chunk {
	c := &Chunk{
		CX:      r.CX,
		CY:      r.CY,
		Biome:   r.Biome,
		Blocks:  r.Tiles,
		Spawns:  r.Spawns,
		Enemies: r.Enemies,
	}
	_ = c.Digest()
	return c
}

// ChunkObserver is told about chunk lifecycle changes. Calls happen after the
// store lock is released: a batch's generated chunks first, then its evictions.
// Observers must not call back into the Store.
type ChunkObserver interface {
	ChunkGenerated(c *Chunk)
	ChunkEvicted(k ChunkKey)
}

type Config struct {
	MaxLoaded int // resident chunk cap
	Workers   int // parallel generators used by LoadAround
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Generated uint64
	Evicted   uint64
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithObserver(o ChunkObserver) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// Store is the lazily generated, LRU-bounded chunk cache. It is safe for
// concurrent use; generation of one coordinate is coalesced across callers.
type Store struct {
	gen       *genpkg.Generator
	cat       *catalogs.TerrainCatalog
	pal       genpkg.Palette
	cfg       Config
	log       *slog.Logger
	observers []ChunkObserver

	flight singleflight.Group

	mu     sync.Mutex
	chunks *simplelru.LRU[ChunkKey, *Chunk]
	pin    window
	stats  Stats
}

// window is the set of chunks the last LoadAround asked to keep resident.
type window struct {
	set    bool
	center ChunkKey
	radius int
}

func (w window) contains(k ChunkKey) bool {
	if !w.set {
		return false
	}
	dx, dy := k.CX-w.center.CX, k.CY-w.center.CY
	return dx >= -w.radius && dx <= w.radius && dy >= -w.radius && dy <= w.radius
}

func New(gen *genpkg.Generator, cat *catalogs.TerrainCatalog, cfg Config, opts ...Option) *Store {
	if cfg.MaxLoaded <= 0 {
		cfg.MaxLoaded = MaxLoadedChunks
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	lru, err := simplelru.NewLRU[ChunkKey, *Chunk](lruBound, nil)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	s := &Store{
		gen:    gen,
		cat:    cat,
		pal:    gen.Palette(),
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		chunks: lru,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Catalog() *catalogs.TerrainCatalog { return s.cat }

func (s *Store) Seed() int64 { return s.gen.Params().Seed }

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
