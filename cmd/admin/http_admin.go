package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/encoding"
)

func getJSON(base, path string, q url.Values, out any) error {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return json.Unmarshal(b, out)
}

func stateCmd(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var state json.RawMessage
	if err := getJSON(*baseURL, "/admin/v1/state", nil, &state); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, string(state))
	return err
}

func chunkCmd(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("chunk", flag.ContinueOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	cx := fs.Int("cx", 0, "chunk x")
	cy := fs.Int("cy", 0, "chunk y")
	terrainPath := fs.String("terrain", "", "terrain catalog json (default: built-in)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cat *catalogs.TerrainCatalog
	var err error
	if strings.TrimSpace(*terrainPath) == "" {
		cat, err = catalogs.DefaultTerrain()
	} else {
		cat, err = catalogs.LoadTerrainFile(*terrainPath)
	}
	if err != nil {
		return err
	}

	var dump encoding.ChunkDump
	q := url.Values{"cx": {strconv.Itoa(*cx)}, "cy": {strconv.Itoa(*cy)}}
	if err := getJSON(*baseURL, "/admin/v1/chunk", q, &dump); err != nil {
		return err
	}
	return renderDump(w, dump, cat)
}

// renderDump prints the chunk header then one row per line, enemies as 'E'.
func renderDump(w io.Writer, d encoding.ChunkDump, cat *catalogs.TerrainCatalog) error {
	tiles, err := encoding.DecodeTiles(d.Tiles, d.Size*d.Size)
	if err != nil {
		return fmt.Errorf("chunk %d,%d: %w", d.CX, d.CY, err)
	}
	fmt.Fprintf(w, "chunk %d,%d biome=%s enemies=%d digest=%s\n", d.CX, d.CY, d.Biome, len(d.Enemies), d.Digest)

	// Enemy positions are world coordinates; chunk (cx,cy) starts at cx*S+1.
	ox, oy := d.CX*d.Size+1, d.CY*d.Size+1
	enemy := map[int]bool{}
	for _, e := range d.Enemies {
		enemy[(e[1]-oy)*d.Size+(e[0]-ox)] = true
	}

	var line strings.Builder
	for row := 0; row < d.Size; row++ {
		line.Reset()
		for col := 0; col < d.Size; col++ {
			i := row*d.Size + col
			if enemy[i] {
				line.WriteByte('E')
				continue
			}
			if int(tiles[i]) >= len(cat.Defs) {
				line.WriteByte('?')
				continue
			}
			line.WriteString(cat.Def(tiles[i]).Glyph)
		}
		line.WriteByte('\n')
		if _, err := io.WriteString(w, line.String()); err != nil {
			return err
		}
	}
	return nil
}
