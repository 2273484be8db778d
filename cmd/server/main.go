package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Carbonadoks/claudecoderpg/internal/logging"
	"github.com/Carbonadoks/claudecoderpg/internal/persistence/indexdb"
	persistlog "github.com/Carbonadoks/claudecoderpg/internal/persistence/log"
	"github.com/Carbonadoks/claudecoderpg/internal/protocol"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/tuning"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/gen"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
	"github.com/Carbonadoks/claudecoderpg/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		terrainPath = flag.String("terrain", "", "terrain catalog json (default: built-in)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		seed        = flag.Int64("seed", 0, "world seed (overrides tuning.yaml when set)")
		index       = flag.String("index", "sqlite", "index backend: sqlite|none")
		watch       = flag.Bool("watch", true, "hot reload view_range and log level from tuning.yaml")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if !errors.Is(tuneErr, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", tuneErr)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			tune.Seed = *seed
		}
	})

	lg, err := logging.New(tune.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer lg.Close()
	logger := lg.With("component", "server")
	if tuneErr != nil {
		logger.Info("tuning not found; using defaults", "path", tp)
	}

	if err := run(*addr, *dataDir, *terrainPath, *index, tp, *watch && tuneErr == nil, tune, lg); err != nil {
		logger.Error("server stopped", "err", err)
		lg.Close()
		os.Exit(1)
	}
}

func run(addr, dataDir, terrainPath, indexBackend, tuningPath string, watch bool, tune tuning.Tuning, lg *logging.Logger) error {
	logger := lg.With("component", "server")

	cat, err := loadTerrain(terrainPath)
	if err != nil {
		return fmt.Errorf("terrain catalog: %w", err)
	}

	idx, err := openRuntimeIndex(dataDir, indexBackend)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	if idx != nil {
		if err := idx.UpsertCatalog(cat, tune); err != nil {
			logger.Warn("index: upsert catalog", "err", err)
		}
	}

	sessionLog := persistlog.NewSessionLog(dataDir)
	if err := sessionLog.WriteHeader(persistlog.Header{
		Seed:          tune.Seed,
		ViewRange:     tune.ViewRange,
		LoadRadius:    tune.LoadRadius,
		ChunkCacheMax: tune.ChunkCacheMax,
		TerrainDigest: cat.Digest,
	}); err != nil {
		logger.Warn("session log: header", "err", err)
	}

	storeOpts := []store.Option{
		store.WithLogger(lg.With("component", "store")),
		store.WithObserver(sessionLog),
	}
	events := multiEventLogger{a: sessionLog}
	if idx != nil {
		storeOpts = append(storeOpts, store.WithObserver(idx))
		events.b = idx
	}
	g := gen.NewGenerator(tune.GenParams(), gen.PaletteFrom(cat))
	st := store.New(g, cat, store.Config{MaxLoaded: tune.ChunkCacheMax, Workers: tune.GenWorkers}, storeOpts...)

	sess := world.New(st, world.Config{
		Seed:       tune.Seed,
		ViewRange:  tune.ViewRange,
		LoadRadius: tune.LoadRadius,
	}, world.WithLogger(lg.With("component", "session")), world.WithEventLogger(events))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- sess.Run(ctx) }()

	if watch {
		go func() {
			err := tuning.Watch(ctx, tuningPath, func(t tuning.Tuning) {
				applyReload(t, sess, lg, logger)
			}, func(err error) {
				logger.Warn("tuning reload rejected", "err", err)
			})
			if err != nil {
				logger.Warn("tuning watch disabled", "err", err)
			}
		}()
	}

	rt := &runtime{store: st, sess: sess, idx: idx, log: logger}
	mux := http.NewServeMux()
	rt.routes(mux)
	mux.HandleFunc("/v1/ws", ws.NewServer(sess, cat, protocol.WorldParams{
		ChunkSize:  store.ChunkSize,
		Seed:       tune.Seed,
		ViewRange:  tune.ViewRange,
		LoadRadius: tune.LoadRadius,
	}, lg.With("component", "ws")).Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", "addr", addr, "seed", tune.Seed, "view_range", tune.ViewRange)
	serveErr := srv.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	cancel()

	// The session goes first so no event lands after its sinks close.
	sess.Stop()
	<-runDone
	if idx != nil {
		flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
		if err := idx.Flush(flushCtx); err != nil {
			logger.Warn("index flush", "err", err)
		}
		cancelFlush()
		_ = idx.Close()
	}
	if err := sessionLog.Close(); err != nil {
		logger.Warn("session log close", "err", err)
	}
	return serveErr
}

func loadTerrain(path string) (*catalogs.TerrainCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalogs.DefaultTerrain()
	}
	return catalogs.LoadTerrainFile(path)
}

func applyReload(t tuning.Tuning, sess *world.Session, lg *logging.Logger, logger *slog.Logger) {
	sess.SetViewRange(t.ViewRange)
	if err := lg.SetLevel(t.Log.Level); err != nil {
		logger.Warn("tuning reload: log level", "err", err)
	}
	logger.Info("tuning reloaded", "view_range", t.ViewRange, "log_level", lg.Level().String())
}

type multiEventLogger struct {
	a world.EventLogger
	b *indexdb.SQLiteIndex
}

func (m multiEventLogger) WriteEvent(e world.Event) error {
	if m.a != nil {
		_ = m.a.WriteEvent(e)
	}
	if m.b != nil {
		_ = m.b.WriteEvent(e)
	}
	return nil
}
