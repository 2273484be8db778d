package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/visibility"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	cat, err := catalogs.DefaultTerrain()
	if err != nil {
		t.Fatalf("terrain: %v", err)
	}
	g := gen.NewGenerator(gen.DefaultParams(11), gen.PaletteFrom(cat))
	return store.New(g, cat, store.Config{MaxLoaded: 1 << 10, Workers: 2})
}

func TestRenderRegion_Shape(t *testing.T) {
	st := newStore(t)
	r := region{X0: -20, Y0: -10, W: 40, H: 20}
	st.LoadAround(0, 0, chunkSpan(r))

	var b strings.Builder
	obs := store.Point{X: 0, Y: 0}
	renderRegion(&b, st, nil, r, &obs)

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	if len(lines) != r.H {
		t.Fatalf("rows = %d, want %d", len(lines), r.H)
	}
	for i, l := range lines {
		if n := utf8.RuneCountInString(l); n != r.W {
			t.Fatalf("row %d has %d cells, want %d", i, n, r.W)
		}
	}
	if []rune(lines[10])[20] != '@' {
		t.Fatalf("observer not at center: %q", lines[10])
	}
}

func TestRenderRegion_VisibilityMasks(t *testing.T) {
	st := newStore(t)
	r := region{X0: -30, Y0: -30, W: 61, H: 61}
	st.LoadAround(0, 0, chunkSpan(r))
	vis := visibility.New(st)
	vis.Recompute(0, 0, 5)

	var b strings.Builder
	obs := store.Point{X: 0, Y: 0}
	renderRegion(&b, st, vis, r, &obs)
	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")

	// Corners are far beyond view range + smoothing.
	for _, l := range []string{lines[0], lines[len(lines)-1]} {
		if strings.TrimSpace(l) != "" {
			t.Fatalf("expected an unlit row, got %q", l)
		}
	}
}

func TestRenderBiomes(t *testing.T) {
	st := newStore(t)
	var b strings.Builder
	renderBiomes(&b, st, 1, 1, 2)
	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	if len(lines) != 5 || len(lines[0]) != 5 {
		t.Fatalf("biome map = %q", b.String())
	}
	center := lines[2][2]
	if center < 'A' || center > 'Z' {
		t.Fatalf("center chunk not marked: %q", lines[2])
	}
	if st.Len() != 25 {
		t.Fatalf("resident = %d, want 25", st.Len())
	}
}

func TestChunkSpan(t *testing.T) {
	if got := chunkSpan(region{W: 10, H: 10}); got != 1 {
		t.Fatalf("small region span = %d", got)
	}
	if got := chunkSpan(region{W: 200, H: 20}); got*store.ChunkSize < 101 {
		t.Fatalf("span %d does not cover half width", got)
	}
}
