package store

import "github.com/Carbonadoks/claudecoderpg/internal/sim/world/logic/mathx"

// World coordinates are unbounded. Chunk (0,0) spans world [1,S]×[1,S] and
// local coordinates run 1..S.

func ChunkOf(wx, wy int) (cx, cy int) {
	return mathx.FloorDiv(wx-1, ChunkSize), mathx.FloorDiv(wy-1, ChunkSize)
}

// OriginOf returns the world coordinates of local (1,1).
func OriginOf(cx, cy int) (wx, wy int) {
	return cx*ChunkSize + 1, cy*ChunkSize + 1
}

func LocalOf(wx, wy int) (lx, ly int) {
	return mathx.Mod(wx-1, ChunkSize) + 1, mathx.Mod(wy-1, ChunkSize) + 1
}

func WorldOf(cx, cy, lx, ly int) (wx, wy int) {
	ox, oy := OriginOf(cx, cy)
	return ox + lx - 1, oy + ly - 1
}
