package main

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/Carbonadoks/claudecoderpg/internal/protocol"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
)

func newTestBot() *bot {
	return &bot{
		rng:      rand.New(rand.NewPCG(1, 1)),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		walkable: map[string]bool{".": true, "#": false},
	}
}

// 3x3 view at origin (0,0), observer in the middle.
func testView(glyphs string, lit bool) world.View {
	v := world.View{Pos: [2]int{1, 1}, Origin: [2]int{0, 0}, Width: 3, Height: 3}
	for _, g := range glyphs {
		t := world.ViewTile{Glyph: string(g)}
		if lit {
			t.Intensity = 1
		}
		v.Tiles = append(v.Tiles, t)
	}
	return v
}

func TestNext_PrefersEnemyInSight(t *testing.T) {
	b := newTestBot()
	b.view = testView(".........", true)
	b.view.Enemies = []world.ViewEnemy{{Pos: [2]int{0, 0}}, {Pos: [2]int{2, 2}, InSight: true}}
	act, ok := b.next()
	d, isDefeat := act.(protocol.DefeatMsg)
	if !ok || !isDefeat || d.Pos != [2]int{2, 2} {
		t.Fatalf("next = %#v", act)
	}
	if len(b.view.Enemies) != 1 || b.view.Enemies[0].Pos != [2]int{0, 0} {
		t.Fatalf("defeated target still tracked: %+v", b.view.Enemies)
	}
	if _, isMove := mustNext(t, b).(protocol.MoveMsg); !isMove {
		t.Fatalf("expected a move once no enemy is in sight")
	}
}

func mustNext(t *testing.T, b *bot) any {
	t.Helper()
	act, ok := b.next()
	if !ok {
		t.Fatalf("no action")
	}
	return act
}

func TestNext_MovesOnlyToLitWalkableTiles(t *testing.T) {
	b := newTestBot()
	b.view = testView("####.####", true) // only the observer's tile is walkable
	if _, ok := b.next(); ok {
		t.Fatalf("expected no move when only the current tile is walkable")
	}

	b.view = testView("#.#######", true)
	for i := 0; i < 10; i++ {
		act, ok := b.next()
		m, isMove := act.(protocol.MoveMsg)
		if !ok || !isMove || m.Pos != [2]int{1, 0} {
			t.Fatalf("next = %#v", act)
		}
	}

	b.view = testView(".........", false)
	if _, ok := b.next(); ok {
		t.Fatalf("expected no move into unlit tiles")
	}
}

func TestWalkableGlyphs_SharedGlyphNeedsBoth(t *testing.T) {
	c := protocol.CatalogMsg{Data: []catalogs.Terrain{
		{ID: "A", Glyph: "x", Walkable: true},
		{ID: "B", Glyph: "x", Walkable: false},
		{ID: "C", Glyph: "o", Walkable: true},
	}}
	got := walkableGlyphs(c)
	if got["x"] || !got["o"] {
		t.Fatalf("walkable = %v", got)
	}
}
