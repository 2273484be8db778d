package store

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	genpkg "github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
)

func newTestStore(t *testing.T, seed int64, cfg Config, opts ...Option) *Store {
	t.Helper()
	cat, err := catalogs.DefaultTerrain()
	if err != nil {
		t.Fatalf("load terrain: %v", err)
	}
	g := genpkg.NewGenerator(genpkg.DefaultParams(seed), genpkg.PaletteFrom(cat))
	return New(g, cat, cfg, opts...)
}

func TestCoords_RoundTrip(t *testing.T) {
	check := func(wx, wy int) {
		cx, cy := ChunkOf(wx, wy)
		lx, ly := LocalOf(wx, wy)
		if lx < 1 || lx > ChunkSize || ly < 1 || ly > ChunkSize {
			t.Fatalf("local (%d,%d) out of range for world (%d,%d)", lx, ly, wx, wy)
		}
		gx, gy := WorldOf(cx, cy, lx, ly)
		if gx != wx || gy != wy {
			t.Fatalf("round trip (%d,%d) -> chunk (%d,%d) local (%d,%d) -> (%d,%d)", wx, wy, cx, cy, lx, ly, gx, gy)
		}
	}
	for wx := -70; wx <= 70; wx++ {
		check(wx, -wx*3)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		check(rng.IntN(1<<40)-(1<<39), rng.IntN(1<<40)-(1<<39))
	}
	check(math.MaxInt32, math.MinInt32)
}

func TestCoords_ChunkBoundaries(t *testing.T) {
	cases := []struct {
		w, c, l int
	}{
		{1, 0, 1},
		{32, 0, 32},
		{33, 1, 1},
		{0, -1, 32},
		{-31, -1, 1},
		{-32, -2, 32},
	}
	for _, tc := range cases {
		cx, _ := ChunkOf(tc.w, 1)
		lx, _ := LocalOf(tc.w, 1)
		if cx != tc.c || lx != tc.l {
			t.Fatalf("world %d: chunk %d local %d, want chunk %d local %d", tc.w, cx, lx, tc.c, tc.l)
		}
	}
	if ox, oy := OriginOf(-1, 2); ox != -31 || oy != 65 {
		t.Fatalf("OriginOf(-1,2) = (%d,%d)", ox, oy)
	}
}

func TestGetChunk_RegeneratesIdenticallyAfterEviction(t *testing.T) {
	s := newTestStore(t, 42, Config{MaxLoaded: 2})
	first := s.GetChunk(0, 0)
	tile11 := first.At(1, 1)
	digest := first.Digest()
	spawns := slices.Clone(first.Spawns)
	enemies := slices.Clone(first.Enemies)

	s.GetChunk(5, 5)
	s.GetChunk(6, 6)
	if s.Resident(0, 0) {
		t.Fatalf("chunk (0,0) should have been evicted")
	}

	again := s.GetChunk(0, 0)
	if again == first {
		t.Fatalf("expected a regenerated chunk, got the same pointer")
	}
	if again.At(1, 1) != tile11 || again.Digest() != digest {
		t.Fatalf("regenerated terrain differs")
	}
	if again.Biome != first.Biome {
		t.Fatalf("biome %s != %s", again.Biome, first.Biome)
	}
	if !slices.Equal(again.Spawns, spawns) || !slices.Equal(again.Enemies, enemies) {
		t.Fatalf("regenerated spawns/enemies differ")
	}
}

func TestRemoveEnemy_LostOnEviction(t *testing.T) {
	s := newTestStore(t, 42, Config{MaxLoaded: 1})
	var ch *Chunk
	var key ChunkKey
	for cx := 10; cx < 40; cx++ {
		ch = s.GetChunk(cx, 0)
		if len(ch.Enemies) > 0 {
			key = ch.Key()
			break
		}
	}
	if len(ch.Enemies) == 0 {
		t.Fatalf("no chunk with enemies found")
	}
	original := len(ch.Enemies)
	e := ch.Enemies[0]
	if !s.RemoveEnemy(e.Pos.X, e.Pos.Y) {
		t.Fatalf("RemoveEnemy(%v) = false", e.Pos)
	}
	if s.RemoveEnemy(e.Pos.X, e.Pos.Y) {
		t.Fatalf("second RemoveEnemy should report false")
	}
	if got := len(s.AllEnemies()); got != original-1 {
		t.Fatalf("AllEnemies = %d, want %d", got, original-1)
	}

	s.GetChunk(key.CX+100, 0) // evicts key
	if got := len(s.GetChunk(key.CX, key.CY).Enemies); got != original {
		t.Fatalf("regenerated chunk has %d enemies, want original %d", got, original)
	}
}

func TestLoadAround_EvictionBoundAndPinning(t *testing.T) {
	s := newTestStore(t, 9, Config{MaxLoaded: MaxLoadedChunks, Workers: 4})
	x, y := 1, 1
	rng := rand.New(rand.NewPCG(3, 4))
	for step := 0; step < 40; step++ {
		x += (rng.IntN(3) - 1) * ChunkSize
		y += (rng.IntN(3) - 1) * ChunkSize
		if step%7 == 0 {
			x += 5 * ChunkSize
		}
		s.LoadAround(x, y, DefaultLoadRadius)
		if n := s.Len(); n > MaxLoadedChunks {
			t.Fatalf("step %d: %d resident chunks > %d", step, n, MaxLoadedChunks)
		}
		cx, cy := ChunkOf(x, y)
		for dy := -DefaultLoadRadius; dy <= DefaultLoadRadius; dy++ {
			for dx := -DefaultLoadRadius; dx <= DefaultLoadRadius; dx++ {
				if !s.Resident(cx+dx, cy+dy) {
					t.Fatalf("step %d: pinned chunk (%d,%d) not resident", step, cx+dx, cy+dy)
				}
			}
		}
	}
}

func TestGetChunk_DoesNotEvictPinnedWindow(t *testing.T) {
	s := newTestStore(t, 9, Config{MaxLoaded: 9})
	s.LoadAround(1, 1, 1) // 9 chunks, all pinned
	for i := 0; i < 20; i++ {
		s.GetChunk(50+i, 50)
		if s.Len() > 9 {
			t.Fatalf("resident %d > cap", s.Len())
		}
	}
	for cy := -1; cy <= 1; cy++ {
		for cx := -1; cx <= 1; cx++ {
			if !s.Resident(cx, cy) {
				t.Fatalf("pinned chunk (%d,%d) evicted", cx, cy)
			}
		}
	}
}

func TestTileAt_NeverFailsAndMatchesChunk(t *testing.T) {
	s := newTestStore(t, 42, Config{})
	for _, w := range [][2]int{{0, 0}, {1, 1}, {-1000003, 77}, {1 << 33, -(1 << 33)}} {
		tile := s.TileAt(w[0], w[1])
		if tile.ID == "" {
			t.Fatalf("empty terrain at %v", w)
		}
		cx, cy := ChunkOf(w[0], w[1])
		lx, ly := LocalOf(w[0], w[1])
		if s.Catalog().Def(s.GetChunk(cx, cy).At(lx, ly)).ID != tile.ID {
			t.Fatalf("TileAt disagrees with chunk at %v", w)
		}
		if s.IsWalkable(w[0], w[1]) != tile.Walkable {
			t.Fatalf("IsWalkable disagrees with TileAt at %v", w)
		}
	}
}

func TestRandomSpawnPoint_OnlyResidentWalkable(t *testing.T) {
	s := newTestStore(t, 11, Config{})
	rng := rand.New(rand.NewPCG(5, 6))
	if _, ok := s.RandomSpawnPoint(rng); ok {
		t.Fatalf("expected no spawn point with an empty store")
	}
	s.LoadAround(1, 1, 1)
	found := 0
	for i := 0; i < 50; i++ {
		p, ok := s.RandomSpawnPoint(rng)
		if !ok {
			continue
		}
		found++
		cx, cy := ChunkOf(p.X, p.Y)
		if !s.Resident(cx, cy) {
			t.Fatalf("spawn %v from non-resident chunk", p)
		}
		if !s.IsWalkable(p.X, p.Y) {
			t.Fatalf("spawn %v not walkable", p)
		}
	}
	if found == 0 {
		t.Fatalf("no spawn points across 9 chunks")
	}
}

type recordingObserver struct {
	mu        sync.Mutex
	generated []ChunkKey
	evicted   []ChunkKey
}

func (r *recordingObserver) ChunkGenerated(c *Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generated = append(r.generated, c.Key())
}

func (r *recordingObserver) ChunkEvicted(k ChunkKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, k)
}

func TestObserver_SeesLifecycle(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestStore(t, 1, Config{MaxLoaded: 2}, WithObserver(obs))
	s.GetChunk(0, 0)
	s.GetChunk(1, 0)
	s.GetChunk(0, 0) // hit, (1,0) becomes oldest
	s.GetChunk(2, 0)
	if len(obs.generated) != 3 {
		t.Fatalf("generated events = %v", obs.generated)
	}
	if len(obs.evicted) != 1 || obs.evicted[0] != (ChunkKey{CX: 1, CY: 0}) {
		t.Fatalf("evicted events = %v, want [(1,0)]", obs.evicted)
	}
	st := s.Stats()
	if st.Hits != 1 || st.Misses != 3 || st.Evicted != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestGetChunk_ConcurrentCallersShareOneChunk(t *testing.T) {
	s := newTestStore(t, 8, Config{})
	const n = 16
	got := make([]*Chunk, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = s.GetChunk(3, -4)
		}()
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("caller %d got a different chunk", i)
		}
	}
	if st := s.Stats(); st.Generated != 1 {
		t.Fatalf("generated %d chunks, want 1", st.Generated)
	}
}

func TestPeek_DoesNotGenerateOrTouchRecency(t *testing.T) {
	s := newTestStore(t, 3, Config{MaxLoaded: 2})
	if _, ok := s.Peek(0, 0); ok {
		t.Fatalf("Peek generated a chunk")
	}
	if s.Stats().Misses != 0 || s.Len() != 0 {
		t.Fatalf("Peek changed the cache: %+v len=%d", s.Stats(), s.Len())
	}

	s.GetChunk(0, 0)
	s.GetChunk(1, 0)
	got, ok := s.Peek(0, 0)
	if !ok || got.CX != 0 || got.CY != 0 || got.Digest() != s.GetChunk(0, 0).Digest() {
		t.Fatalf("Peek(0,0) = %v %v", got.Key(), ok)
	}

	// (1,0) is now least recent; Peek must not change that.
	s.Peek(1, 0)
	s.GetChunk(2, 0)
	if s.Resident(1, 0) || !s.Resident(0, 0) {
		t.Fatalf("resident = %v", s.LoadedChunkKeys())
	}
}
