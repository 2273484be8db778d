package world

// View is what the observer can see after a recompute. Tiles cover the square
// of side 2*(ViewRange+1)+1 centered on Pos, row by row from Origin.
type View struct {
	Pos       [2]int      `json:"pos"`
	Biome     string      `json:"biome"`
	ViewRange int         `json:"view_range"`
	Origin    [2]int      `json:"origin"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Tiles     []ViewTile  `json:"tiles"`
	Enemies   []ViewEnemy `json:"enemies,omitempty"`
	Visible   int         `json:"visible"`
	Explored  int         `json:"explored"`
}

// ViewTile is blank for tiles never seen. Explored tiles keep their glyph so
// clients can draw remembered terrain dimmed.
type ViewTile struct {
	Glyph     string   `json:"g,omitempty"`
	Color     [4]uint8 `json:"c"`
	Intensity float64  `json:"i,omitempty"`
	Explored  bool     `json:"e,omitempty"`
}

type ViewEnemy struct {
	Pos     [2]int `json:"pos"`
	Biome   string `json:"biome"`
	InSight bool   `json:"in_sight"`
}

func (v View) TileAt(x, y int) (ViewTile, bool) {
	lx, ly := x-v.Origin[0], y-v.Origin[1]
	if lx < 0 || ly < 0 || lx >= v.Width || ly >= v.Height {
		return ViewTile{}, false
	}
	return v.Tiles[ly*v.Width+lx], true
}

func (s *Session) view() View {
	r := s.last + 1
	x0, y0 := s.pos.X-r, s.pos.Y-r
	x1, y1 := s.pos.X+r, s.pos.Y+r

	v := View{
		Pos:       [2]int{s.pos.X, s.pos.Y},
		Biome:     s.store.BiomeAt(s.pos.X, s.pos.Y),
		ViewRange: s.last,
		Origin:    [2]int{x0, y0},
		Width:     x1 - x0 + 1,
		Height:    y1 - y0 + 1,
		Visible:   s.vis.VisibleCount(),
		Explored:  s.vis.ExploredCount(),
	}
	cells := s.vis.Window(x0, y0, x1, y1)
	v.Tiles = make([]ViewTile, len(cells))
	for i, c := range cells {
		if !c.Explored {
			continue
		}
		t := s.store.TileAt(c.X, c.Y)
		v.Tiles[i] = ViewTile{
			Glyph:     t.Glyph,
			Color:     t.RGBA(),
			Intensity: c.Intensity,
			Explored:  true,
		}
	}

	for _, e := range s.store.EnemiesNear(s.pos.X, s.pos.Y, r) {
		if !s.vis.IsVisible(e.Pos.X, e.Pos.Y) {
			continue
		}
		v.Enemies = append(v.Enemies, ViewEnemy{
			Pos:     [2]int{e.Pos.X, e.Pos.Y},
			Biome:   string(e.Biome),
			InSight: s.vis.HasLineOfSight(s.pos.X, s.pos.Y, e.Pos.X, e.Pos.Y),
		})
	}
	return v
}
