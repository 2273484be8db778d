package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/tuning"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
)

// SQLiteIndex is a queryable read model of chunk lifecycle and session
// events. Writes are queued to one writer goroutine and dropped when the
// queue is full; the JSONL event log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropChunk atomic.Uint64
	dropEvent atomic.Uint64
}

type reqKind int

const (
	reqChunkGenerated reqKind = iota + 1
	reqChunkEvicted
	reqEvent
	reqFlush
)

type req struct {
	kind reqKind
	at   string

	chunk chunkRow
	event world.Event
	done  chan struct{}
}

type chunkRow struct {
	CX, CY  int
	Biome   string
	Digest  string
	Spawns  int
	Enemies int
}

const defaultQueue = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-heavy workload; NORMAL sync is enough for a
	// secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			biome TEXT NOT NULL,
			digest TEXT NOT NULL,
			spawns INTEGER NOT NULL,
			enemies INTEGER NOT NULL,
			generated INTEGER NOT NULL DEFAULT 0,
			evicted INTEGER NOT NULL DEFAULT 0,
			mismatches INTEGER NOT NULL DEFAULT 0,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			PRIMARY KEY (cx, cy)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_generated ON chunks(generated);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			view_range INTEGER NOT NULL,
			visible INTEGER NOT NULL,
			explored INTEGER NOT NULL,
			removed INTEGER NOT NULL,
			at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (s *SQLiteIndex) ChunkGenerated(c *store.Chunk) {
	if s == nil || s.closed.Load() {
		return
	}
	d := c.Digest()
	r := chunkRow{
		CX:      c.CX,
		CY:      c.CY,
		Biome:   string(c.Biome),
		Digest:  hex.EncodeToString(d[:]),
		Spawns:  len(c.Spawns),
		Enemies: len(c.Enemies),
	}
	select {
	case s.ch <- req{kind: reqChunkGenerated, at: now(), chunk: r}:
	default:
		s.dropChunk.Add(1)
	}
}

func (s *SQLiteIndex) ChunkEvicted(k store.ChunkKey) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqChunkEvicted, at: now(), chunk: chunkRow{CX: k.CX, CY: k.CY}}:
	default:
		s.dropChunk.Add(1)
	}
}

func (s *SQLiteIndex) WriteEvent(e world.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, at: now(), event: e}:
	default:
		s.dropEvent.Add(1)
	}
	return nil
}

// Flush blocks until everything queued before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalog records the terrain catalog and the tuning values in effect.
func (s *SQLiteIndex) UpsertCatalog(cat *catalogs.TerrainCatalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	at := now()

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(cat.Defs); len(b) > 0 {
		rows = append(rows, kv{name: "terrain", digest: cat.Digest, json: b})
	}
	if b, _ := json.Marshal(cat.Palette); len(b) > 0 {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "terrain_palette", digest: hex.EncodeToString(sum[:]), json: b})
	}
	if b, _ := json.Marshal(tune); len(b) > 0 {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('seed',?)`, fmt.Sprint(tune.Seed)); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	begin := func() bool {
		if tx != nil {
			return true
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return false
		}
		tx = txx
		opCount = 0
		return true
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	defer commit()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				return
			}
			if r.kind == reqFlush {
				commit()
				close(r.done)
				continue
			}
			if !begin() {
				continue
			}
			if err := apply(ctx, tx, r); err != nil {
				_ = tx.Rollback()
				tx = nil
				continue
			}
			opCount++
			if opCount >= commitEvery {
				commit()
			}
		case <-ticker.C:
			commit()
		}
	}
}

func apply(ctx context.Context, tx *sql.Tx, r req) error {
	switch r.kind {
	case reqChunkGenerated:
		c := r.chunk
		// mismatches counts regenerations whose digest differs from the last one.
		_, err := tx.ExecContext(ctx, `INSERT INTO chunks(cx,cy,biome,digest,spawns,enemies,generated,evicted,mismatches,first_seen,last_seen)
			VALUES(?,?,?,?,?,?,1,0,0,?,?)
			ON CONFLICT(cx,cy) DO UPDATE SET
				generated = generated + 1,
				mismatches = mismatches + (chunks.digest <> excluded.digest),
				biome = excluded.biome,
				digest = excluded.digest,
				spawns = excluded.spawns,
				enemies = excluded.enemies,
				last_seen = excluded.last_seen`,
			c.CX, c.CY, c.Biome, c.Digest, c.Spawns, c.Enemies, r.at, r.at)
		return err
	case reqChunkEvicted:
		_, err := tx.ExecContext(ctx, `UPDATE chunks SET evicted = evicted + 1, last_seen = ? WHERE cx = ? AND cy = ?`,
			r.at, r.chunk.CX, r.chunk.CY)
		return err
	case reqEvent:
		e := r.event
		removed := 0
		if e.Removed {
			removed = 1
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO events(seq,type,x,y,view_range,visible,explored,removed,at) VALUES(?,?,?,?,?,?,?,?,?)`,
			e.Seq, e.Type, e.Pos[0], e.Pos[1], e.ViewRange, e.Visible, e.Explored, removed, r.at)
		return err
	}
	return nil
}
