package log

import (
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
)

const (
	KindHeader  = "header"
	KindSession = "session"
	KindChunk   = "chunk"

	ChunkGenerated = "GENERATED"
	ChunkEvicted   = "EVICTED"
)

// Header opens every run of the server. It carries what a replay needs to
// rebuild the same world; the chunks themselves are never written.
type Header struct {
	Seed          int64  `json:"seed"`
	ViewRange     int    `json:"view_range"`
	LoadRadius    int    `json:"load_radius"`
	ChunkCacheMax int    `json:"chunk_cache_max"`
	TerrainDigest string `json:"terrain_digest"`
}

type ChunkEntry struct {
	Op      string `json:"op"`
	CX      int    `json:"cx"`
	CY      int    `json:"cy"`
	Biome   string `json:"biome,omitempty"`
	Digest  string `json:"digest,omitempty"`
	Spawns  int    `json:"spawns,omitempty"`
	Enemies int    `json:"enemies,omitempty"`
}

type Entry struct {
	Time    string       `json:"time"`
	Kind    string       `json:"kind"`
	Header  *Header      `json:"header,omitempty"`
	Session *world.Event `json:"session,omitempty"`
	Chunk   *ChunkEntry  `json:"chunk,omitempty"`
}

// SessionLog writes session events and chunk lifecycle changes to
// <dir>/events/events-YYYY-MM-DD-HH.jsonl.zst. It satisfies both
// world.EventLogger and store.ChunkObserver.
type SessionLog struct {
	w   *JSONLZstdWriter
	now func() time.Time
}

func NewSessionLog(dir string, opts ...WriterOption) *SessionLog {
	w := NewJSONLZstdWriter(filepath.Join(dir, "events"), "events", opts...)
	return &SessionLog{w: w, now: w.now}
}

func (l *SessionLog) stamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

func (l *SessionLog) WriteHeader(h Header) error {
	return l.w.Write(Entry{Time: l.stamp(), Kind: KindHeader, Header: &h})
}

func (l *SessionLog) WriteEvent(e world.Event) error {
	return l.w.Write(Entry{Time: l.stamp(), Kind: KindSession, Session: &e})
}

// ChunkGenerated and ChunkEvicted drop write errors; the store has nobody to
// report them to. The session's own events surface failures through its logger.
func (l *SessionLog) ChunkGenerated(c *store.Chunk) {
	d := c.Digest()
	_ = l.w.Write(Entry{Time: l.stamp(), Kind: KindChunk, Chunk: &ChunkEntry{
		Op:      ChunkGenerated,
		CX:      c.CX,
		CY:      c.CY,
		Biome:   string(c.Biome),
		Digest:  hex.EncodeToString(d[:]),
		Spawns:  len(c.Spawns),
		Enemies: len(c.Enemies),
	}})
}

func (l *SessionLog) ChunkEvicted(k store.ChunkKey) {
	_ = l.w.Write(Entry{Time: l.stamp(), Kind: KindChunk, Chunk: &ChunkEntry{
		Op: ChunkEvicted,
		CX: k.CX,
		CY: k.CY,
	}})
}

func (l *SessionLog) Close() error { return l.w.Close() }
