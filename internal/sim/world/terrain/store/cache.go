package store

import (
	"fmt"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"
)

// lifecycle collects observer notifications while the lock is held.
type lifecycle struct {
	generated []*Chunk
	evicted   []ChunkKey
}

// GetChunk returns the resident chunk, generating it on a miss. A miss may
// evict the least recently used chunk outside the pinned window.
func (s *Store) GetChunk(cx, cy int) *Chunk {
	k := ChunkKey{CX: cx, CY: cy}

	s.mu.Lock()
	if ch, ok := s.chunks.Get(k); ok {
		s.stats.Hits++
		s.mu.Unlock()
		return ch
	}
	s.stats.Misses++
	s.mu.Unlock()

	fresh := s.generate(k)

	var ev lifecycle
	s.mu.Lock()
	ch := s.insertLocked(fresh, &ev)
	s.evictLocked(&ev)
	s.mu.Unlock()

	s.notify(ev)
	return ch
}

// LoadAround makes every chunk within Chebyshev distance radius of the
// observer's chunk resident and pins that window against eviction until the
// next call. Missing chunks are generated in parallel.
func (s *Store) LoadAround(wx, wy, radius int) {
	if radius < 0 {
		radius = 0
	}
	cx, cy := ChunkOf(wx, wy)

	var missing []ChunkKey
	s.mu.Lock()
	s.pin = window{set: true, center: ChunkKey{CX: cx, CY: cy}, radius: radius}
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			k := ChunkKey{CX: x, CY: y}
			if _, ok := s.chunks.Get(k); ok {
				s.stats.Hits++
				continue
			}
			s.stats.Misses++
			missing = append(missing, k)
		}
	}
	s.mu.Unlock()

	if len(missing) == 0 {
		return
	}

	fresh := make([]*Chunk, len(missing))
	var eg errgroup.Group
	eg.SetLimit(s.cfg.Workers)
	for i, k := range missing {
		eg.Go(func() error {
			fresh[i] = s.generate(k)
			return nil
		})
	}
	_ = eg.Wait()

	var ev lifecycle
	s.mu.Lock()
	for _, ch := range fresh {
		s.insertLocked(ch, &ev)
	}
	s.evictLocked(&ev)
	s.mu.Unlock()

	s.notify(ev)
	s.log.Debug("load around", "chunk", fmt.Sprintf("%d,%d", cx, cy), "radius", radius, "generated", len(ev.generated), "evicted", len(ev.evicted))
}

// generate runs the pipeline outside the lock. Concurrent requests for the
// same coordinate share one run, so a chunk's random draws happen once.
func (s *Store) generate(k ChunkKey) *Chunk {
	v, _, _ := s.flight.Do(fmt.Sprintf("%d,%d", k.CX, k.CY), func() (any, error) {
		return chunkFrom(s.gen.Generate(k.CX, k.CY)), nil
	})
	return v.(*Chunk)
}

// insertLocked adds ch unless a racing caller already inserted that key, in
// which case the resident chunk wins.
func (s *Store) insertLocked(ch *Chunk, ev *lifecycle) *Chunk {
	k := ch.Key()
	if cur, ok := s.chunks.Get(k); ok {
		return cur
	}
	s.chunks.Add(k, ch)
	s.stats.Generated++
	ev.generated = append(ev.generated, ch)
	s.log.Debug("chunk generated", "cx", k.CX, "cy", k.CY, "biome", string(ch.Biome), "enemies", len(ch.Enemies))
	return ch
}

// evictLocked drops least recently used chunks until the cap holds. Pinned
// chunks are never chosen; if only pinned chunks remain the cap is left
// exceeded rather than break the pin.
func (s *Store) evictLocked(ev *lifecycle) {
	for s.chunks.Len() > s.cfg.MaxLoaded {
		victim, ok := s.oldestUnpinnedLocked()
		if !ok {
			s.log.Warn("chunk cap exceeded by pinned window", "resident", s.chunks.Len(), "cap", s.cfg.MaxLoaded)
			return
		}
		s.chunks.Remove(victim)
		s.stats.Evicted++
		ev.evicted = append(ev.evicted, victim)
		s.log.Debug("chunk evicted", "cx", victim.CX, "cy", victim.CY)
	}
}

func (s *Store) oldestUnpinnedLocked() (ChunkKey, bool) {
	// Keys runs oldest to newest.
	for _, k := range s.chunks.Keys() {
		if !s.pin.contains(k) {
			return k, true
		}
	}
	return ChunkKey{}, false
}

func (s *Store) notify(ev lifecycle) {
	for _, o := range s.observers {
		for _, ch := range ev.generated {
			o.ChunkGenerated(ch)
		}
		for _, k := range ev.evicted {
			o.ChunkEvicted(k)
		}
	}
}

// Resident reports whether a chunk is loaded without touching its recency.
func (s *Store) Resident(cx, cy int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks.Contains(ChunkKey{CX: cx, CY: cy})
}

// Peek returns a copy of a resident chunk without generating it or touching
// its recency. The copy's Enemies are safe to read after the call.
func (s *Store) Peek(cx, cy int) (Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chunks.Peek(ChunkKey{CX: cx, CY: cy})
	if !ok {
		return Chunk{}, false
	}
	out := *ch
	out.Enemies = slices.Clone(ch.Enemies)
	return out, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks.Len()
}

func (s *Store) LoadedChunkKeys() []ChunkKey {
	s.mu.Lock()
	keys := s.chunks.Keys()
	s.mu.Unlock()
	sortKeys(keys)
	return keys
}

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
}
