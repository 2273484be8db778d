package store

import (
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/logic/mathx"
)

// AllEnemies lists the enemy records of every resident chunk, ordered by
// position. Evicted chunks take their records with them.
func (s *Store) AllEnemies() []Enemy {
	s.mu.Lock()
	var out []Enemy
	for _, ch := range s.chunks.Values() {
		out = append(out, ch.Enemies...)
	}
	s.mu.Unlock()
	sortEnemies(out)
	return out
}

// EnemiesNear lists resident enemy records within Chebyshev distance r.
func (s *Store) EnemiesNear(wx, wy, r int) []Enemy {
	s.mu.Lock()
	var out []Enemy
	for _, ch := range s.chunks.Values() {
		for _, e := range ch.Enemies {
			if mathx.Chebyshev(wx, wy, e.Pos.X, e.Pos.Y) <= r {
				out = append(out, e)
			}
		}
	}
	s.mu.Unlock()
	sortEnemies(out)
	return out
}

// RemoveEnemy deletes the enemy record at a world coordinate. It reports
// false if no resident chunk holds a record there. Removal lasts only while
// the chunk stays resident; regeneration restores the original enemies.
func (s *Store) RemoveEnemy(wx, wy int) bool {
	cx, cy := ChunkOf(wx, wy)
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chunks.Peek(ChunkKey{CX: cx, CY: cy})
	if !ok {
		return false
	}
	i := slices.IndexFunc(ch.Enemies, func(e Enemy) bool {
		return e.Pos.X == wx && e.Pos.Y == wy
	})
	if i < 0 {
		return false
	}
	ch.Enemies = slices.Delete(slices.Clone(ch.Enemies), i, i+1)
	return true
}

// RandomSpawnPoint draws uniformly from the spawn points of resident chunks
// that are still walkable and not occupied by an enemy record. ok is false
// when there are none; callers fall back to their own placement.
func (s *Store) RandomSpawnPoint(rng *rand.Rand) (Point, bool) {
	s.mu.Lock()
	keys := s.chunks.Keys()
	sortKeys(keys)
	var candidates []Point
	for _, k := range keys {
		ch, _ := s.chunks.Peek(k)
		occupied := make(map[Point]bool, len(ch.Enemies))
		for _, e := range ch.Enemies {
			occupied[e.Pos] = true
		}
		for _, p := range ch.Spawns {
			lx, ly := LocalOf(p.X, p.Y)
			if occupied[p] || !s.pal.Walkable(ch.At(lx, ly)) {
				continue
			}
			candidates = append(candidates, p)
		}
	}
	s.mu.Unlock()

	if len(candidates) == 0 {
		return Point{}, false
	}
	return candidates[rng.IntN(len(candidates))], true
}

func sortEnemies(es []Enemy) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Pos.Y != es[j].Pos.Y {
			return es[i].Pos.Y < es[j].Pos.Y
		}
		return es[i].Pos.X < es[j].Pos.X
	})
}
