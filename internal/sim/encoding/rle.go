// Package encoding packs chunk tiles for transport: runs of equal palette
// indices as (index, length) uvarint pairs, base64 encoded.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeTiles run-length encodes palette indices.
func EncodeTiles(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(ids); {
		id := ids[i]
		run := 1
		for i+run < len(ids) && ids[i+run] == id {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(id))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeTiles reverses EncodeTiles. The decoded length must equal want, which
// also bounds how much a hostile input can expand.
func DecodeTiles(s string, want int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, want)
	for i := 0; i < len(raw); {
		id, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if id > 0xFFFF {
			return nil, fmt.Errorf("palette index too large: %d", id)
		}
		if run == 0 || run > uint64(want-len(out)) {
			return nil, fmt.Errorf("run of %d at %d overflows %d tiles", run, i, want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(id))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("decoded %d tiles, want %d", len(out), want)
	}
	return out, nil
}

// ChunkDump is the admin view of one resident chunk.
type ChunkDump struct {
	CX      int      `json:"cx"`
	CY      int      `json:"cy"`
	Size    int      `json:"size"`
	Biome   string   `json:"biome"`
	Digest  string   `json:"digest"`
	Tiles   string   `json:"tiles"` // EncodeTiles, row-major from local (1,1)
	Enemies [][2]int `json:"enemies,omitempty"`
}
