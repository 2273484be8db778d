// Command bot drives the observer over the websocket API: it walks to random
// lit tiles and defeats enemies it can see.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Carbonadoks/claudecoderpg/internal/protocol"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "client name")
		every = flag.Duration("every", 500*time.Millisecond, "delay between actions")
		steps = flag.Int("steps", 0, "stop after this many actions (0: run until interrupted)")
		seed  = flag.Uint64("seed", uint64(time.Now().UnixNano()), "bot rng seed")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("component", "bot")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b := &bot{rng: rand.New(rand.NewPCG(*seed, 1)), log: logger}
	if err := b.run(ctx, *url, *name, *every, *steps); err != nil && ctx.Err() == nil {
		logger.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

type bot struct {
	rng      *rand.Rand
	log      *slog.Logger
	walkable map[string]bool // glyph -> walkable, from CATALOG
	view     world.View
	seq      int
}

func (b *bot) run(ctx context.Context, url, name string, every time.Duration, steps int) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: name, MaxQueue: 8}
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}
	// WELCOME, CATALOG, then the first VIEW.
	for b.view.Width == 0 {
		if err := b.read(conn); err != nil {
			return err
		}
	}

	for i := 0; steps == 0 || i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(every):
		}
		act, ok := b.next()
		if !ok {
			act = protocol.LookMsg{Type: protocol.TypeLook, ProtocolVersion: protocol.Version, ID: b.id("L")}
		}
		if err := conn.WriteJSON(act); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if err := b.read(conn); err != nil {
			return err
		}
	}
	return nil
}

func (b *bot) id(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

func (b *bot) read(conn *websocket.Conn) error {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return err
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return err
		}
		b.log.Info("WELCOME", "seed", w.WorldParams.Seed, "view_range", w.WorldParams.ViewRange)
	case protocol.TypeCatalog:
		var c protocol.CatalogMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			return err
		}
		b.walkable = walkableGlyphs(c)
	case protocol.TypeView:
		var v protocol.ViewMsg
		if err := json.Unmarshal(msg, &v); err != nil {
			return err
		}
		b.view = v.View
		b.log.Info("view", "pos", v.View.Pos, "biome", v.View.Biome, "visible", v.View.Visible, "explored", v.View.Explored, "enemies", len(v.View.Enemies))
	case protocol.TypeAck:
		var a protocol.AckMsg
		_ = json.Unmarshal(msg, &a)
		b.log.Info("ack", "for", a.AckFor, "accepted", a.Accepted, "code", a.Code)
	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		b.log.Warn("error", "reply_to", e.ReplyTo, "code", e.Code, "message", e.Message)
	}
	return nil
}

func walkableGlyphs(c protocol.CatalogMsg) map[string]bool {
	out := make(map[string]bool, len(c.Data))
	for _, t := range c.Data {
		// Two terrains sharing a glyph count as walkable only if both are.
		if w, seen := out[t.Glyph]; seen {
			out[t.Glyph] = w && t.Walkable
			continue
		}
		out[t.Glyph] = t.Walkable
	}
	return out
}

// next picks the bot's action from the last view: defeat an enemy in sight,
// else move to a random lit walkable tile other than the current one.
func (b *bot) next() (any, bool) {
	for i, e := range b.view.Enemies {
		if e.InSight {
			// The reply is an ACK, not a new view; forget the target either way.
			b.view.Enemies = append(b.view.Enemies[:i:i], b.view.Enemies[i+1:]...)
			return protocol.DefeatMsg{Type: protocol.TypeDefeat, ProtocolVersion: protocol.Version, ID: b.id("D"), Pos: e.Pos}, true
		}
	}
	var cands [][2]int
	v := b.view
	for i, t := range v.Tiles {
		if t.Intensity <= 0 || !b.walkable[t.Glyph] {
			continue
		}
		p := [2]int{v.Origin[0] + i%v.Width, v.Origin[1] + i/v.Width}
		if p != v.Pos {
			cands = append(cands, p)
		}
	}
	if len(cands) == 0 {
		return nil, false
	}
	p := cands[b.rng.IntN(len(cands))]
	return protocol.MoveMsg{Type: protocol.TypeMove, ProtocolVersion: protocol.Version, ID: b.id("M"), Pos: p}, true
}
