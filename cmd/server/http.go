package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Carbonadoks/claudecoderpg/internal/persistence/indexdb"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/encoding"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
)

type snapshotter interface {
	Snapshot(ctx context.Context) (world.View, error)
}

// runtime holds what the HTTP side can inspect. idx may be nil.
type runtime struct {
	store *store.Store
	sess  snapshotter
	idx   *indexdb.SQLiteIndex
	log   *slog.Logger
}

func (rt *runtime) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", rt.metrics)
	mux.HandleFunc("/admin/v1/state", loopbackOnly(rt.state))
	mux.HandleFunc("/admin/v1/chunks", loopbackOnly(rt.chunks))
	mux.HandleFunc("/admin/v1/mismatches", loopbackOnly(rt.mismatches))
	mux.HandleFunc("/admin/v1/chunk", loopbackOnly(rt.chunk))
}

func (rt *runtime) metrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	s := rt.store.Stats()
	gauge(rw, "rpg_loaded_chunks", "Resident chunk count.", float64(rt.store.Len()))
	counter(rw, "rpg_chunk_cache_hits_total", "Chunk lookups served from the cache.", s.Hits)
	counter(rw, "rpg_chunk_cache_misses_total", "Chunk lookups that had to generate.", s.Misses)
	counter(rw, "rpg_chunks_generated_total", "Chunks generated.", s.Generated)
	counter(rw, "rpg_chunks_evicted_total", "Chunks evicted.", s.Evicted)

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if v, err := rt.sess.Snapshot(ctx); err == nil {
		gauge(rw, "rpg_view_range", "Current view range in tiles.", float64(v.ViewRange))
		gauge(rw, "rpg_visible_tiles", "Tiles lit by the last recompute.", float64(v.Visible))
		gauge(rw, "rpg_explored_tiles", "Tiles ever seen.", float64(v.Explored))
	}

	if rt.idx != nil {
		is := rt.idx.Stats()
		gauge(rw, "rpg_index_queue_depth", "Index writer backlog.", float64(is.QueueDepth))
		fmt.Fprintf(rw, "# HELP rpg_index_dropped_total Index writes dropped on a full queue.\n# TYPE rpg_index_dropped_total counter\n")
		fmt.Fprintf(rw, "rpg_index_dropped_total{kind=%q} %d\n", "chunk", is.DropChunk)
		fmt.Fprintf(rw, "rpg_index_dropped_total{kind=%q} %d\n", "event", is.DropEvent)
	}
}

func gauge(rw http.ResponseWriter, name, help string, v float64) {
	fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", name, help, name, name, v)
}

func counter(rw http.ResponseWriter, name, help string, v uint64) {
	fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, v)
}

type stateResp struct {
	Pos          [2]int      `json:"pos"`
	Biome        string      `json:"biome"`
	ViewRange    int         `json:"view_range"`
	Visible      int         `json:"visible"`
	Explored     int         `json:"explored"`
	LoadedChunks int         `json:"loaded_chunks"`
	Cache        store.Stats `json:"cache"`
}

func (rt *runtime) state(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	v, err := rt.sess.Snapshot(ctx)
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, stateResp{
		Pos:          v.Pos,
		Biome:        v.Biome,
		ViewRange:    v.ViewRange,
		Visible:      v.Visible,
		Explored:     v.Explored,
		LoadedChunks: rt.store.Len(),
		Cache:        rt.store.Stats(),
	})
}

// chunks lists the most regenerated chunks: ?top=N (default 20).
func (rt *runtime) chunks(rw http.ResponseWriter, r *http.Request) {
	if rt.idx == nil {
		http.Error(rw, "index disabled", http.StatusNotFound)
		return
	}
	top := 20
	if s := r.URL.Query().Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(rw, "bad top", http.StatusBadRequest)
			return
		}
		top = n
	}
	if err := rt.idx.Flush(r.Context()); err != nil {
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	rows, err := rt.idx.MostRegenerated(r.Context(), top)
	if err != nil {
		rt.log.Warn("admin chunks", "err", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"chunks": rows, "index": rt.idx.Stats()})
}

// mismatches lists chunks whose regenerated digest ever differed.
func (rt *runtime) mismatches(rw http.ResponseWriter, r *http.Request) {
	if rt.idx == nil {
		http.Error(rw, "index disabled", http.StatusNotFound)
		return
	}
	if err := rt.idx.Flush(r.Context()); err != nil {
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	rows, err := rt.idx.Mismatched(r.Context())
	if err != nil {
		rt.log.Warn("admin mismatches", "err", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []indexdb.ChunkRow{}
	}
	writeJSON(rw, http.StatusOK, map[string]any{"chunks": rows})
}

// chunk dumps one resident chunk: ?cx=&cy=. It never generates.
func (rt *runtime) chunk(rw http.ResponseWriter, r *http.Request) {
	cx, err1 := strconv.Atoi(r.URL.Query().Get("cx"))
	cy, err2 := strconv.Atoi(r.URL.Query().Get("cy"))
	if err1 != nil || err2 != nil {
		http.Error(rw, "cx and cy are required integers", http.StatusBadRequest)
		return
	}
	ch, ok := rt.store.Peek(cx, cy)
	if !ok {
		http.Error(rw, "chunk not resident", http.StatusNotFound)
		return
	}
	d := ch.Digest()
	dump := encoding.ChunkDump{
		CX:     ch.CX,
		CY:     ch.CY,
		Size:   store.ChunkSize,
		Biome:  string(ch.Biome),
		Digest: hex.EncodeToString(d[:]),
		Tiles:  encoding.EncodeTiles(ch.Blocks),
	}
	for _, e := range ch.Enemies {
		dump.Enemies = append(dump.Enemies, [2]int{e.Pos.X, e.Pos.Y})
	}
	writeJSON(rw, http.StatusOK, dump)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
