package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	persistlog "github.com/Carbonadoks/claudecoderpg/internal/persistence/log"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/tuning"
)

func main() {
	var (
		dataDir     = flag.String("data", "./data", "runtime data directory (reads <data>/events)")
		eventsDir   = flag.String("events", "", "events dir containing events-*.jsonl.zst (default: <data>/events)")
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "tuning.yaml the server ran with (worldgen block)")
		terrainPath = flag.String("terrain", "", "terrain catalog json (default: built-in)")
		sessions    = flag.Bool("sessions", true, "also replay session events against a fresh session")
		verbose     = flag.Bool("v", false, "print every mismatch")
	)
	flag.Parse()

	dir := strings.TrimSpace(*eventsDir)
	if dir == "" {
		dir = filepath.Join(*dataDir, "events")
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

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

	files, err := persistlog.ListFiles(dir, "events")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", dir)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rep, err := verify(ctx, files, verifyConfig{Tuning: tune, Catalog: cat, Sessions: *sessions})
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}

	if *verbose {
		for _, p := range rep.Problems {
			fmt.Println(p)
		}
	}
	fmt.Printf("runs=%d chunks=%d chunk_mismatches=%d events=%d event_mismatches=%d explored_drift=%d\n",
		rep.Runs, rep.Chunks, rep.ChunkMismatches, rep.Events, rep.EventMismatches, rep.ExploredDrift)
	if !rep.OK() {
		if !*verbose && len(rep.Problems) > 0 {
			fmt.Println(rep.Problems[0])
		}
		os.Exit(1)
	}
	fmt.Println("replay ok")
}
