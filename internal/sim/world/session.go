package world

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/terrain/store"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world/visibility"
)

var (
	ErrBlocked = errors.New("world: target tile is not walkable")
	ErrStopped = errors.New("world: session stopped")
)

type Point = store.Point

type Config struct {
	Seed       int64
	ViewRange  int
	LoadRadius int
}

// Event types written to the EventLogger.
const (
	EventStart   = "START"
	EventMove    = "MOVE"
	EventBlocked = "BLOCKED"
	EventDefeat  = "DEFEAT"
)

type Event struct {
	Seq       uint64 `json:"seq"`
	Type      string `json:"type"`
	Pos       [2]int `json:"pos"`
	ViewRange int    `json:"view_range,omitempty"`
	Visible   int    `json:"visible,omitempty"`
	Explored  int    `json:"explored,omitempty"`
	Removed   bool   `json:"removed,omitempty"`
}

type EventLogger interface {
	WriteEvent(e Event) error
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithEventLogger attaches an optional session event sink (may be nil).
func WithEventLogger(l EventLogger) Option {
	return func(s *Session) { s.events = l }
}

type moveReq struct {
	To   Point
	Resp chan moveResp
}

type moveResp struct {
	View View
	Err  error
}

type snapshotReq struct {
	Resp chan View
}

type defeatReq struct {
	At   Point
	Resp chan bool
}

// Session is one observer walking a chunked world. Position, the store's
// pinned window and the visibility maps are only touched from the Run
// goroutine; other goroutines go through Move, Snapshot and Defeat.
type Session struct {
	cfg    Config
	store  *store.Store
	vis    *visibility.Engine
	log    *slog.Logger
	events EventLogger
	rng    *rand.Rand

	pos  Point
	seq  uint64
	vr   atomic.Int64
	last int // view range used by the last recompute

	move     chan moveReq
	snapshot chan snapshotReq
	defeat   chan defeatReq
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New places the observer and runs the first recompute before returning, so
// Snapshot has something to show as soon as Run starts.
func New(st *store.Store, cfg Config, opts ...Option) *Session {
	if cfg.LoadRadius < 0 {
		cfg.LoadRadius = store.DefaultLoadRadius
	}
	s := &Session{
		cfg:      cfg,
		store:    st,
		vis:      visibility.New(st),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		rng:      rand.New(rand.NewPCG(uint64(cfg.Seed), 0x9e3779b97f4a7c15)),
		move:     make(chan moveReq),
		snapshot: make(chan snapshotReq),
		defeat:   make(chan defeatReq),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.vr.Store(int64(cfg.ViewRange))
	for _, o := range opts {
		o(s)
	}

	s.pos = s.place()
	s.refresh()
	s.log.Info("session start", "x", s.pos.X, "y", s.pos.Y, "biome", s.store.BiomeAt(s.pos.X, s.pos.Y))
	s.writeEvent(Event{Type: EventStart, Pos: [2]int{s.pos.X, s.pos.Y}, ViewRange: s.last})
	return s
}

// Run serves requests until ctx is done or Stop is called.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.move:
			req.Resp <- s.handleMove(req.To)
		case req := <-s.snapshot:
			if s.viewRange() != s.last {
				s.refresh()
			}
			req.Resp <- s.view()
		case req := <-s.defeat:
			req.Resp <- s.handleDefeat(req.At)
		}
	}
}

func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// SetViewRange takes effect on the next recompute. Safe from any goroutine.
func (s *Session) SetViewRange(vr int) {
	if vr < 0 {
		vr = 0
	}
	s.vr.Store(int64(vr))
}

func (s *Session) viewRange() int { return int(s.vr.Load()) }

// Move teleports the observer to (x,y). Step length is not checked; the
// target tile must be walkable.
func (s *Session) Move(ctx context.Context, x, y int) (View, error) {
	req := moveReq{To: Point{X: x, Y: y}, Resp: make(chan moveResp, 1)}
	resp, err := roundTrip(ctx, s, s.move, req, req.Resp)
	if err != nil {
		return View{}, err
	}
	return resp.View, resp.Err
}

func (s *Session) Snapshot(ctx context.Context) (View, error) {
	req := snapshotReq{Resp: make(chan View, 1)}
	return roundTrip(ctx, s, s.snapshot, req, req.Resp)
}

// Defeat removes the enemy record at (x,y). It reports false when no resident
// chunk holds one there.
func (s *Session) Defeat(ctx context.Context, x, y int) (bool, error) {
	req := defeatReq{At: Point{X: x, Y: y}, Resp: make(chan bool, 1)}
	return roundTrip(ctx, s, s.defeat, req, req.Resp)
}

func roundTrip[Req, Resp any](ctx context.Context, s *Session, ch chan<- Req, req Req, resp <-chan Resp) (Resp, error) {
	var zero Resp
	select {
	case ch <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrStopped
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrStopped
	}
}

func (s *Session) handleMove(to Point) moveResp {
	s.seq++
	if !s.store.IsWalkable(to.X, to.Y) {
		s.log.Debug("move blocked", "x", to.X, "y", to.Y)
		s.writeEvent(Event{Seq: s.seq, Type: EventBlocked, Pos: [2]int{to.X, to.Y}})
		return moveResp{Err: ErrBlocked}
	}
	s.pos = to
	s.refresh()
	v := s.view()
	s.log.Debug("move", "x", to.X, "y", to.Y, "visible", v.Visible, "explored", v.Explored)
	s.writeEvent(Event{
		Seq:       s.seq,
		Type:      EventMove,
		Pos:       [2]int{to.X, to.Y},
		ViewRange: v.ViewRange,
		Visible:   v.Visible,
		Explored:  v.Explored,
	})
	return moveResp{View: v}
}

func (s *Session) handleDefeat(at Point) bool {
	s.seq++
	removed := s.store.RemoveEnemy(at.X, at.Y)
	s.log.Debug("defeat", "x", at.X, "y", at.Y, "removed", removed)
	s.writeEvent(Event{Seq: s.seq, Type: EventDefeat, Pos: [2]int{at.X, at.Y}, Removed: removed})
	return removed
}

// refresh loads the chunks around the observer, then recasts visibility.
func (s *Session) refresh() {
	s.store.LoadAround(s.pos.X, s.pos.Y, s.cfg.LoadRadius)
	s.last = s.viewRange()
	s.vis.Recompute(s.pos.X, s.pos.Y, s.last)
}

func (s *Session) writeEvent(e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.WriteEvent(e); err != nil {
		s.log.Warn("event log write failed", "type", e.Type, "err", err)
	}
}
