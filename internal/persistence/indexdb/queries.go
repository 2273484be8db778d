package indexdb

import (
	"context"
	"database/sql"
	"errors"
)

type ChunkRow struct {
	CX         int    `json:"cx"`
	CY         int    `json:"cy"`
	Biome      string `json:"biome"`
	Digest     string `json:"digest"`
	Spawns     int    `json:"spawns"`
	Enemies    int    `json:"enemies"`
	Generated  int    `json:"generated"`
	Evicted    int    `json:"evicted"`
	Mismatches int    `json:"mismatches"`
	FirstSeen  string `json:"first_seen"`
	LastSeen   string `json:"last_seen"`
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropChunk     uint64 `json:"drop_chunk_total"`
	DropEvent     uint64 `json:"drop_event_total"`
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropChunk:     s.dropChunk.Load(),
		DropEvent:     s.dropEvent.Load(),
	}
}

const chunkCols = `cx,cy,biome,digest,spawns,enemies,generated,evicted,mismatches,first_seen,last_seen`

func scanChunk(sc interface{ Scan(...any) error }) (ChunkRow, error) {
	var r ChunkRow
	err := sc.Scan(&r.CX, &r.CY, &r.Biome, &r.Digest, &r.Spawns, &r.Enemies, &r.Generated, &r.Evicted, &r.Mismatches, &r.FirstSeen, &r.LastSeen)
	return r, err
}

func (s *SQLiteIndex) Chunk(ctx context.Context, cx, cy int) (ChunkRow, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkCols+` FROM chunks WHERE cx = ? AND cy = ?`, cx, cy)
	r, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ChunkRow{}, false, nil
	}
	if err != nil {
		return ChunkRow{}, false, err
	}
	return r, true, nil
}

// MostRegenerated lists chunks by how often they were generated, highest
// first. High counts mean the cache cap is too small for how players move.
func (s *SQLiteIndex) MostRegenerated(ctx context.Context, limit int) ([]ChunkRow, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryChunks(ctx, `SELECT `+chunkCols+` FROM chunks ORDER BY generated DESC, cx, cy LIMIT ?`, limit)
}

// Mismatched lists chunks that regenerated with a different digest. Any row
// here is a determinism bug.
func (s *SQLiteIndex) Mismatched(ctx context.Context) ([]ChunkRow, error) {
	return s.queryChunks(ctx, `SELECT `+chunkCols+` FROM chunks WHERE mismatches > 0 ORDER BY cx, cy`)
}

func (s *SQLiteIndex) queryChunks(ctx context.Context, q string, args ...any) ([]ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChunkRow
	for rows.Next() {
		r, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventCounts returns the number of recorded session events per type.
func (s *SQLiteIndex) EventCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[typ] = n
	}
	return out, rows.Err()
}
