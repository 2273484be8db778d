package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	persistlog "github.com/Carbonadoks/claudecoderpg/internal/persistence/log"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/tuning"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
)

const testCacheMax = 25

func testCatalog(t *testing.T) *catalogs.TerrainCatalog {
	t.Helper()
	cat, err := catalogs.DefaultTerrain()
	if err != nil {
		t.Fatalf("terrain: %v", err)
	}
	return cat
}

func nearest(st *store.Store, x, y int, walkable bool) world.Point {
	for r := 0; ; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if st.IsWalkable(x+dx, y+dy) == walkable {
					return world.Point{X: x + dx, Y: y + dy}
				}
			}
		}
	}
}

// recordRun plays a short session the way cmd/server wires it and returns the
// events dir.
func recordRun(t *testing.T, seed int64) string {
	t.Helper()
	cat := testCatalog(t)
	tune := tuning.Defaults()
	tune.Seed = seed
	tune.ChunkCacheMax = testCacheMax

	dir := t.TempDir()
	sl := persistlog.NewSessionLog(dir)
	if err := sl.WriteHeader(persistlog.Header{
		Seed: seed, ViewRange: tune.ViewRange, LoadRadius: tune.LoadRadius,
		ChunkCacheMax: tune.ChunkCacheMax, TerrainDigest: cat.Digest,
	}); err != nil {
		t.Fatalf("header: %v", err)
	}

	g := gen.NewGenerator(tune.GenParams(), gen.PaletteFrom(cat))
	st := store.New(g, cat, store.Config{MaxLoaded: tune.ChunkCacheMax, Workers: 4}, store.WithObserver(sl))
	sess := world.New(st, world.Config{Seed: seed, ViewRange: tune.ViewRange, LoadRadius: tune.LoadRadius}, world.WithEventLogger(sl))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.Run(ctx)
	}()

	// A separate store answers "where can I walk" without touching the
	// session's cache order.
	probe := store.New(gen.NewGenerator(tune.GenParams(), gen.PaletteFrom(cat)), cat, store.Config{MaxLoaded: 1000, Workers: 1})

	for _, target := range []world.Point{{X: 40, Y: 5}, {X: 200, Y: -150}, {X: -300, Y: 90}, {X: 3, Y: 3}} {
		p := nearest(probe, target.X, target.Y, true)
		if _, err := sess.Move(ctx, p.X, p.Y); err != nil {
			t.Fatalf("move %v: %v", p, err)
		}
	}
	wall := nearest(probe, 10, 10, false)
	if _, err := sess.Move(ctx, wall.X, wall.Y); !errors.Is(err, world.ErrBlocked) {
		t.Fatalf("move into %v: err=%v", wall, err)
	}
	for _, e := range st.EnemiesNear(3, 3, 40) {
		if _, err := sess.Defeat(ctx, e.Pos.X, e.Pos.Y); err != nil {
			t.Fatalf("defeat: %v", err)
		}
		break
	}
	if _, err := sess.Defeat(ctx, 1, 1); err != nil {
		t.Fatalf("defeat: %v", err)
	}

	sess.Stop()
	<-done
	if err := sl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return filepath.Join(dir, "events")
}

func TestVerify_RecordedRunReplaysClean(t *testing.T) {
	eventsDir := recordRun(t, 99)
	files, err := persistlog.ListFiles(eventsDir, "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}

	tune := tuning.Defaults()
	rep, err := verify(context.Background(), files, verifyConfig{Tuning: tune, Catalog: testCatalog(t), Sessions: true})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !rep.OK() {
		t.Fatalf("replay mismatches: %+v", rep.Problems)
	}
	if rep.Runs != 1 || rep.Chunks < 9 {
		t.Fatalf("report = %+v", rep)
	}
	// START, 4 moves, 1 blocked, at least one defeat.
	if rep.Events < 7 {
		t.Fatalf("events = %d", rep.Events)
	}
	if rep.ExploredDrift != 0 {
		t.Fatalf("explored drift without reloads: %d", rep.ExploredDrift)
	}
}

func TestVerify_DetectsDigestMismatch(t *testing.T) {
	cat := testCatalog(t)
	dir := t.TempDir()
	w := persistlog.NewJSONLZstdWriter(dir, "events")
	entries := []persistlog.Entry{
		{Kind: persistlog.KindHeader, Header: &persistlog.Header{Seed: 5, ViewRange: 10, LoadRadius: 2, ChunkCacheMax: 50, TerrainDigest: cat.Digest}},
		{Kind: persistlog.KindChunk, Chunk: &persistlog.ChunkEntry{Op: persistlog.ChunkGenerated, CX: 0, CY: 0, Digest: "00"}},
		{Kind: persistlog.KindChunk, Chunk: &persistlog.ChunkEntry{Op: persistlog.ChunkEvicted, CX: 0, CY: 0}},
	}
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, _ := persistlog.ListFiles(dir, "events")

	rep, err := verify(context.Background(), files, verifyConfig{Tuning: tuning.Defaults(), Catalog: cat})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rep.OK() || rep.Chunks != 1 || rep.ChunkMismatches != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestVerify_RejectsOtherTerrainCatalog(t *testing.T) {
	dir := t.TempDir()
	w := persistlog.NewJSONLZstdWriter(dir, "events")
	if err := w.Write(persistlog.Entry{Kind: persistlog.KindHeader, Header: &persistlog.Header{Seed: 1, TerrainDigest: "deadbeef"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = w.Close()
	files, _ := persistlog.ListFiles(dir, "events")

	if _, err := verify(context.Background(), files, verifyConfig{Tuning: tuning.Defaults(), Catalog: testCatalog(t)}); err == nil {
		t.Fatalf("expected catalog digest error")
	}
}
