package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/visibility"
)

type region struct {
	X0, Y0 int
	W, H   int
}

// chunkSpan is the chunk radius that covers r from its center.
func chunkSpan(r region) int {
	half := max(r.W, r.H)/2 + 1
	return (half + store.ChunkSize - 1) / store.ChunkSize
}

// renderRegion writes one line per row. Enemies print as 'E' and the
// observer as '@'. With vis set, tiles outside the lit set print as ' '.
func renderRegion(w io.Writer, st *store.Store, vis *visibility.Engine, r region, obs *store.Point) {
	enemies := map[store.Point]bool{}
	for _, e := range st.EnemiesNear(r.X0+r.W/2, r.Y0+r.H/2, max(r.W, r.H)) {
		enemies[e.Pos] = true
	}
	var line strings.Builder
	for y := r.Y0; y < r.Y0+r.H; y++ {
		line.Reset()
		for x := r.X0; x < r.X0+r.W; x++ {
			p := store.Point{X: x, Y: y}
			switch {
			case obs != nil && p == *obs:
				line.WriteByte('@')
			case vis != nil && !vis.IsVisible(x, y):
				line.WriteByte(' ')
			case enemies[p]:
				line.WriteByte('E')
			default:
				line.WriteString(glyph(st.TileAt(x, y).Glyph))
			}
		}
		line.WriteByte('\n')
		_, _ = io.WriteString(w, line.String())
	}
}

func glyph(g string) string {
	if g == "" {
		return "?"
	}
	return g
}

// renderBiomes prints one letter per chunk: the biome's initial, upper case
// for the chunk holding (x,y).
func renderBiomes(w io.Writer, st *store.Store, x, y, radius int) {
	ccx, ccy := store.ChunkOf(x, y)
	for cy := ccy - radius; cy <= ccy+radius; cy++ {
		for cx := ccx - radius; cx <= ccx+radius; cx++ {
			b := string(st.GetChunk(cx, cy).Biome)
			c := byte('?')
			if b != "" {
				c = b[0] | 0x20
			}
			if cx == ccx && cy == ccy {
				c &^= 0x20
			}
			fmt.Fprintf(w, "%c", c)
		}
		fmt.Fprintln(w)
	}
}
