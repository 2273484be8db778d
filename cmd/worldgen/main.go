// Command worldgen prints a region of a generated world as text. With -vr it
// also casts visibility from the center, the same way a session would.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/tuning"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/visibility"
)

func main() {
	var (
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "tuning.yaml (worldgen block)")
		terrainPath = flag.String("terrain", "", "terrain catalog json (default: built-in)")
		seed        = flag.Int64("seed", 0, "world seed (overrides tuning.yaml when set)")
		cx          = flag.Int("x", 1, "center x")
		cy          = flag.Int("y", 1, "center y")
		width       = flag.Int("w", 96, "width in tiles")
		height      = flag.Int("h", 48, "height in tiles")
		vr          = flag.Int("vr", -1, "cast visibility from the center with this view range (-1: off)")
		biomes      = flag.Int("biomes", 0, "print a biome map of (2n+1)^2 chunks around the center instead")
	)
	flag.Parse()

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			tune.Seed = *seed
		}
	})

	var cat *catalogs.TerrainCatalog
	if strings.TrimSpace(*terrainPath) == "" {
		cat, err = catalogs.DefaultTerrain()
	} else {
		cat, err = catalogs.LoadTerrainFile(*terrainPath)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "terrain catalog:", err)
		os.Exit(1)
	}

	g := gen.NewGenerator(tune.GenParams(), gen.PaletteFrom(cat))
	// Big enough that a dump never evicts what it is about to print.
	st := store.New(g, cat, store.Config{MaxLoaded: 1 << 14, Workers: tune.GenWorkers})

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if *biomes > 0 {
		renderBiomes(out, st, *cx, *cy, *biomes)
		return
	}

	r := region{X0: *cx - *width/2, Y0: *cy - *height/2, W: *width, H: *height}
	st.LoadAround(*cx, *cy, chunkSpan(r))
	var vis *visibility.Engine
	if *vr >= 0 {
		vis = visibility.New(st)
		vis.Recompute(*cx, *cy, *vr)
	}
	renderRegion(out, st, vis, r, &store.Point{X: *cx, Y: *cy})
	if vis != nil {
		fmt.Fprintf(out, "visible=%d explored=%d\n", vis.VisibleCount(), vis.ExploredCount())
	}
}
