package encoding

import (
	"encoding/base64"
	"slices"
	"testing"
)

func TestTiles_RoundTrip(t *testing.T) {
	in := []uint16{1, 1, 1, 2, 2, 3}
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10, 300)

	out, err := DecodeTiles(EncodeTiles(in), len(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(out, in) {
		t.Fatalf("round trip changed tiles:\n got %v\nwant %v", out, in)
	}
}

func TestTiles_UniformChunkIsTiny(t *testing.T) {
	in := make([]uint16, 32*32)
	if enc := EncodeTiles(in); len(enc) > 8 {
		t.Fatalf("uniform chunk encoded to %d bytes", len(enc))
	}
}

func TestDecodeTiles_RejectsWrongLength(t *testing.T) {
	enc := EncodeTiles([]uint16{4, 4, 4, 4})
	if _, err := DecodeTiles(enc, 3); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeTiles(enc, 5); err == nil {
		t.Fatalf("expected short error")
	}
	// id=1, run=2^40: must fail before allocating.
	bomb := base64.StdEncoding.EncodeToString([]byte{0x01, 0x80, 0x80, 0x80, 0x80, 0x80, 0x20})
	if _, err := DecodeTiles(bomb, 1024); err == nil {
		t.Fatalf("expected oversized run error")
	}
	if _, err := DecodeTiles("!!", 1); err == nil {
		t.Fatalf("expected base64 error")
	}
}
