package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	persistlog "github.com/Carbonadoks/claudecoderpg/internal/persistence/log"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/tuning"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
)

type verifyConfig struct {
	Tuning   tuning.Tuning // worldgen parameters; the seed comes from each header
	Catalog  *catalogs.TerrainCatalog
	Sessions bool
}

type report struct {
	Runs            int
	Chunks          int
	ChunkMismatches int
	Events          int
	EventMismatches int
	// Explored counts depend on LOOK refreshes after a view range reload,
	// which are not logged, so drift there is reported but not fatal.
	ExploredDrift int
	Problems      []string
}

func (r report) OK() bool { return r.ChunkMismatches == 0 && r.EventMismatches == 0 }

func (r *report) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// run is the replay state for one server start, opened by a header entry.
type run struct {
	digests map[store.ChunkKey]string
	gen     *gen.Generator

	sess   *world.Session
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *run) close() {
	if r == nil || r.sess == nil {
		return
	}
	r.sess.Stop()
	r.cancel()
	<-r.done
}

// verify walks the files in order. Every GENERATED chunk is regenerated from
// the run's seed and its digest compared; with Sessions set, session events
// are fed to a fresh session and their outcomes compared.
func verify(ctx context.Context, files []string, cfg verifyConfig) (report, error) {
	var rep report
	var cur *run
	defer func() { cur.close() }()

	for _, path := range files {
		err := persistlog.ReadEntries(path, func(e persistlog.Entry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch e.Kind {
			case persistlog.KindHeader:
				if e.Header == nil {
					return fmt.Errorf("%s: header entry without header", e.Time)
				}
				cur.close()
				next, err := startRun(*e.Header, cfg)
				if err != nil {
					return err
				}
				cur = next
				rep.Runs++
			case persistlog.KindChunk:
				if cur == nil {
					return fmt.Errorf("%s: chunk entry before any header", e.Time)
				}
				if e.Chunk != nil && e.Chunk.Op == persistlog.ChunkGenerated {
					checkChunk(cur, *e.Chunk, &rep)
				}
			case persistlog.KindSession:
				if cur == nil {
					return fmt.Errorf("%s: session entry before any header", e.Time)
				}
				if e.Session == nil {
					return nil
				}
				rep.Events++
				if cur.sess != nil {
					if err := checkEvent(ctx, cur, *e.Session, &rep); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func startRun(h persistlog.Header, cfg verifyConfig) (*run, error) {
	if h.TerrainDigest != "" && h.TerrainDigest != cfg.Catalog.Digest {
		return nil, fmt.Errorf("terrain catalog digest mismatch: log=%s have=%s", h.TerrainDigest, cfg.Catalog.Digest)
	}
	params := cfg.Tuning.GenParams()
	params.Seed = h.Seed
	pal := gen.PaletteFrom(cfg.Catalog)

	r := &run{
		digests: map[store.ChunkKey]string{},
		gen:     gen.NewGenerator(params, pal),
	}
	if !cfg.Sessions {
		return r, nil
	}

	// The session gets its own generator and store sized like the server's,
	// so evictions (and the enemies they bring back) happen at the same moves.
	st := store.New(gen.NewGenerator(params, pal), cfg.Catalog, store.Config{MaxLoaded: h.ChunkCacheMax, Workers: 1})
	r.sess = world.New(st, world.Config{Seed: h.Seed, ViewRange: h.ViewRange, LoadRadius: h.LoadRadius})
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		_ = r.sess.Run(ctx)
	}()
	return r, nil
}

func checkChunk(r *run, c persistlog.ChunkEntry, rep *report) {
	rep.Chunks++
	k := store.ChunkKey{CX: c.CX, CY: c.CY}
	want, ok := r.digests[k]
	if !ok {
		want = digestOf(r.gen.Generate(c.CX, c.CY))
		r.digests[k] = want
	}
	if c.Digest != want {
		rep.ChunkMismatches++
		rep.problem("chunk %d,%d: digest %s, regenerated %s", c.CX, c.CY, c.Digest, want)
	}
}

func digestOf(res gen.Result) string {
	d := store.DigestBlocks(res.Tiles)
	return hex.EncodeToString(d[:])
}

func checkEvent(ctx context.Context, r *run, e world.Event, rep *report) error {
	switch e.Type {
	case world.EventStart:
		v, err := r.sess.Snapshot(ctx)
		if err != nil {
			return err
		}
		if v.Pos != e.Pos {
			rep.EventMismatches++
			rep.problem("start: logged %v, replayed %v", e.Pos, v.Pos)
		}

	case world.EventMove, world.EventBlocked:
		if e.ViewRange > 0 {
			r.sess.SetViewRange(e.ViewRange)
		}
		v, err := r.sess.Move(ctx, e.Pos[0], e.Pos[1])
		blocked := errors.Is(err, world.ErrBlocked)
		if err != nil && !blocked {
			return err
		}
		if blocked != (e.Type == world.EventBlocked) {
			rep.EventMismatches++
			rep.problem("seq %d %s %v: replay blocked=%v", e.Seq, e.Type, e.Pos, blocked)
			return nil
		}
		if blocked {
			return nil
		}
		if v.Visible != e.Visible {
			rep.EventMismatches++
			rep.problem("seq %d move %v: visible %d, replayed %d", e.Seq, e.Pos, e.Visible, v.Visible)
		}
		if v.Explored != e.Explored {
			rep.ExploredDrift++
		}

	case world.EventDefeat:
		removed, err := r.sess.Defeat(ctx, e.Pos[0], e.Pos[1])
		if err != nil {
			return err
		}
		if removed != e.Removed {
			rep.EventMismatches++
			rep.problem("seq %d defeat %v: removed %v, replayed %v", e.Seq, e.Pos, e.Removed, removed)
		}
	}
	return nil
}
