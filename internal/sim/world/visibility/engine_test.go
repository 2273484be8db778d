package visibility

import "testing"

type stubTerrain struct {
	walls map[Point]bool
	doors map[Point]bool
}

func newStub() *stubTerrain {
	return &stubTerrain{walls: map[Point]bool{}, doors: map[Point]bool{}}
}

func (s *stubTerrain) IsWalkable(x, y int) bool { return !s.walls[Point{X: x, Y: y}] }
func (s *stubTerrain) IsDoor(x, y int) bool     { return s.doors[Point{X: x, Y: y}] }

func (s *stubTerrain) wallColumn(x, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		s.walls[Point{X: x, Y: y}] = true
	}
}

func TestRecompute_WallBlocksTilesBehindIt(t *testing.T) {
	terr := newStub()
	terr.wallColumn(5, -12, 12)
	e := New(terr)
	e.Recompute(0, 0, 10)

	if !e.IsVisible(5, 0) {
		t.Fatalf("blocking tile (5,0) should be visible")
	}
	if e.IsVisible(6, 0) {
		t.Fatalf("(6,0) behind the wall should not be visible, intensity=%v", e.IntensityAt(6, 0))
	}
	for y := -10; y <= 10; y++ {
		for x := 6; x <= 14; x++ {
			if e.IsVisible(x, y) {
				t.Fatalf("(%d,%d) behind the wall is visible", x, y)
			}
		}
	}
	if !e.IsVisible(-6, 0) || !e.IsVisible(0, 8) {
		t.Fatalf("open directions should stay visible")
	}
}

func TestRecompute_DoorsDoNotBlock(t *testing.T) {
	terr := newStub()
	terr.wallColumn(5, -12, 12)
	terr.doors[Point{X: 5, Y: 0}] = true
	e := New(terr)
	e.Recompute(0, 0, 10)
	if !e.IsVisible(6, 0) || !e.IsVisible(9, 0) {
		t.Fatalf("tiles behind a door should be visible")
	}
}

func TestRecompute_IntensityFallsWithDistance(t *testing.T) {
	e := New(newStub())
	const vr = 10
	e.Recompute(0, 0, vr)

	if got := e.IntensityAt(0, 0); got != ObserverIntensity {
		t.Fatalf("observer intensity = %v", got)
	}
	for _, dir := range []Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		prev := e.IntensityAt(0, 0)
		for k := 1; k <= vr; k++ {
			v := e.IntensityAt(dir.X*k, dir.Y*k)
			if v <= 0 {
				t.Fatalf("dir %v step %d not visible", dir, k)
			}
			if v > prev {
				t.Fatalf("dir %v: intensity rose from %v to %v at step %d", dir, prev, v, k)
			}
			prev = v
		}
	}
}

func TestRecompute_StaysNearObserver(t *testing.T) {
	e := New(newStub())
	e.Recompute(40, -7, 6)
	for x := 40 - 20; x <= 40+20; x++ {
		for y := -7 - 20; y <= -7+20; y++ {
			dx, dy := x-40, y+7
			if dx < 0 {
				dx = -dx
			}
			if dy < 0 {
				dy = -dy
			}
			if (dx > 7 || dy > 7) && e.IsVisible(x, y) {
				t.Fatalf("(%d,%d) lit beyond view range", x, y)
			}
		}
	}
	if e.VisibleCount() == 0 {
		t.Fatalf("nothing visible")
	}
}

func TestRecompute_ZeroRangeOnlyObserver(t *testing.T) {
	e := New(newStub())
	e.Recompute(3, 3, 0)
	if e.VisibleCount() != 1 || !e.IsVisible(3, 3) {
		t.Fatalf("want only the observer tile, got %d visible", e.VisibleCount())
	}
}

func TestRecompute_ExploredIsPermanent(t *testing.T) {
	e := New(newStub())
	e.Recompute(0, 0, 8)
	seen := e.VisibleCount()
	if e.IsExplored(3, 0) {
		t.Fatalf("tiles are folded into explored on the next recompute")
	}

	e.Recompute(200, 0, 8)
	if !e.IsExplored(3, 0) || !e.IsExplored(0, 0) {
		t.Fatalf("previously visible tiles should be explored")
	}
	if e.IsVisible(3, 0) {
		t.Fatalf("(3,0) is out of range now")
	}
	if e.ExploredCount() != seen {
		t.Fatalf("explored = %d, want %d", e.ExploredCount(), seen)
	}

	e.Recompute(400, 0, 8)
	if !e.IsExplored(3, 0) || !e.IsExplored(203, 0) {
		t.Fatalf("explored set lost tiles")
	}
	if e.ExploredCount() < 2*seen {
		t.Fatalf("explored set did not grow: %d", e.ExploredCount())
	}
}

func TestWindow_RowMajor(t *testing.T) {
	e := New(newStub())
	e.Recompute(0, 0, 3)
	cells := e.Window(-1, -1, 1, 0)
	if len(cells) != 6 {
		t.Fatalf("len = %d", len(cells))
	}
	if cells[0].X != -1 || cells[0].Y != -1 || cells[5].X != 1 || cells[5].Y != 0 {
		t.Fatalf("unexpected order %+v", cells)
	}
	if cells[4].Intensity != ObserverIntensity || !cells[4].Explored {
		t.Fatalf("observer cell = %+v", cells[4])
	}
	if e.Window(2, 0, 1, 0) != nil {
		t.Fatalf("empty rectangle should give nil")
	}
}

func TestHasLineOfSight(t *testing.T) {
	terr := newStub()
	terr.walls[Point{X: 3, Y: 0}] = true
	terr.walls[Point{X: 10, Y: 10}] = true
	terr.doors[Point{X: 0, Y: 3}] = true
	terr.walls[Point{X: 0, Y: 3}] = true
	e := New(terr)

	cases := []struct {
		name           string
		x1, y1, x2, y2 int
		want           bool
	}{
		{"open", 0, 0, -5, 2, true},
		{"wall between", 0, 0, 6, 0, false},
		{"wall is target", 0, 0, 3, 0, true},
		{"wall is origin", 3, 0, 6, 0, true},
		{"door between", 0, 0, 0, 6, true},
		{"diagonal wall", 0, 0, 12, 12, false},
		{"same tile", 4, 4, 4, 4, true},
		{"adjacent", 2, 0, 3, 0, true},
	}
	for _, tc := range cases {
		if got := e.HasLineOfSight(tc.x1, tc.y1, tc.x2, tc.y2); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestLine_Endpoints(t *testing.T) {
	pts := Line(-2, 5, 4, 1)
	if pts[0] != (Point{X: -2, Y: 5}) || pts[len(pts)-1] != (Point{X: 4, Y: 1}) {
		t.Fatalf("endpoints wrong: %v", pts)
	}
	if len(pts) != 7 {
		t.Fatalf("len = %d, want 7", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		dx, dy := pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y
		if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
			t.Fatalf("gap between %v and %v", pts[i-1], pts[i])
		}
	}
}
