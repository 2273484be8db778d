package store

import "github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"

// TileIDAt returns the palette index at a world coordinate, generating the
// chunk if needed. It never fails.
func (s *Store) TileIDAt(wx, wy int) uint16 {
	cx, cy := ChunkOf(wx, wy)
	lx, ly := LocalOf(wx, wy)
	return s.GetChunk(cx, cy).At(lx, ly)
}

func (s *Store) TileAt(wx, wy int) catalogs.Terrain {
	return s.cat.Def(s.TileIDAt(wx, wy))
}

func (s *Store) IsWalkable(wx, wy int) bool {
	return s.pal.Walkable(s.TileIDAt(wx, wy))
}

func (s *Store) IsDoor(wx, wy int) bool {
	return s.TileIDAt(wx, wy) == s.pal.Door
}

// BiomeAt returns the biome of the chunk holding a world coordinate.
func (s *Store) BiomeAt(wx, wy int) string {
	cx, cy := ChunkOf(wx, wy)
	return string(s.GetChunk(cx, cy).Biome)
}
