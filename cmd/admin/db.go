package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Carbonadoks/claudecoderpg/internal/persistence/indexdb"
)

func indexFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/world.sqlite)")
	return fs, dataDir, dbPath
}

func openIndex(dataDir, dbPath string) (*indexdb.SQLiteIndex, error) {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = filepath.Join(dataDir, "index", "world.sqlite")
	}
	return indexdb.OpenSQLite(path)
}

func chunksCmd(w io.Writer, args []string) error {
	fs, dataDir, dbPath := indexFlags("chunks")
	limit := fs.Int("limit", 20, "result limit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	idx, err := openIndex(*dataDir, *dbPath)
	if err != nil {
		return err
	}
	defer idx.Close()
	rows, err := idx.MostRegenerated(context.Background(), *limit)
	if err != nil {
		return err
	}
	printChunkRows(w, rows)
	return nil
}

func mismatchesCmd(w io.Writer, args []string) error {
	fs, dataDir, dbPath := indexFlags("mismatches")
	if err := fs.Parse(args); err != nil {
		return err
	}
	idx, err := openIndex(*dataDir, *dbPath)
	if err != nil {
		return err
	}
	defer idx.Close()
	rows, err := idx.Mismatched(context.Background())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no mismatches")
		return nil
	}
	printChunkRows(w, rows)
	return errors.New("generation is not deterministic for the chunks above")
}

func eventsCmd(w io.Writer, args []string) error {
	fs, dataDir, dbPath := indexFlags("events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	idx, err := openIndex(*dataDir, *dbPath)
	if err != nil {
		return err
	}
	defer idx.Close()
	counts, err := idx.EventCounts(context.Background())
	if err != nil {
		return err
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "%-8s %d\n", t, counts[t])
	}
	return nil
}

func printChunkRows(w io.Writer, rows []indexdb.ChunkRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CX\tCY\tBIOME\tGEN\tEVICT\tMISMATCH\tENEMIES\tDIGEST")
	for _, r := range rows {
		d := r.Digest
		if len(d) > 12 {
			d = d[:12]
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n", r.CX, r.CY, r.Biome, r.Generated, r.Evicted, r.Mismatches, r.Enemies, d)
	}
	_ = tw.Flush()
}
