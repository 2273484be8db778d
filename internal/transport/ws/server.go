package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Carbonadoks/claudecoderpg/internal/protocol"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
)

// Session is the part of world.Session the transport drives.
type Session interface {
	Move(ctx context.Context, x, y int) (world.View, error)
	Snapshot(ctx context.Context) (world.View, error)
	Defeat(ctx context.Context, x, y int) (bool, error)
}

// Server serves one observer at a time. A second connection is refused
// until the first one leaves.
type Server struct {
	sess   Session
	cat    *catalogs.TerrainCatalog
	params protocol.WorldParams
	log    *slog.Logger

	upgrader websocket.Upgrader
	busy     atomic.Bool
}

func NewServer(sess Session, cat *catalogs.TerrainCatalog, params protocol.WorldParams, logger *slog.Logger) *Server {
	return &Server{
		sess:   sess,
		cat:    cat,
		params: params,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.busy.CompareAndSwap(false, true) {
			closeWith(conn, websocket.ClosePolicyViolation, "observer already connected")
			return
		}
		defer s.busy.Store(false)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out, ok := s.handshake(ctx, conn)
		if !ok {
			return
		}
		s.log.Info("observer connected", "remote", r.RemoteAddr)
		defer s.log.Info("observer disconnected", "remote", r.RemoteAddr)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := s.handle(ctx, msg)
			if reply == nil {
				continue
			}
			b, err := json.Marshal(reply)
			if err != nil {
				s.log.Error("marshal reply", "err", err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handle turns one client message into one reply. Malformed input gets an
// ERROR rather than a dropped connection.
func (s *Server) handle(ctx context.Context, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewError("", protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewError("", protocol.ErrProtoVersion, "bad protocol_version")
	}
	if err := protocol.ValidateClient(base.Type, msg); err != nil {
		return protocol.NewError("", protocol.ErrProtoBadRequest, err.Error())
	}

	switch base.Type {
	case protocol.TypeMove:
		var m protocol.MoveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return protocol.NewError("", protocol.ErrProtoBadRequest, err.Error())
		}
		v, err := s.sess.Move(ctx, m.Pos[0], m.Pos[1])
		if err != nil {
			return sessionError(m.ID, err)
		}
		return viewMsg(m.ID, v)

	case protocol.TypeDefeat:
		var m protocol.DefeatMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return protocol.NewError("", protocol.ErrProtoBadRequest, err.Error())
		}
		removed, err := s.sess.Defeat(ctx, m.Pos[0], m.Pos[1])
		if err != nil {
			return sessionError(m.ID, err)
		}
		ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: m.ID, Accepted: removed}
		if !removed {
			ack.Code = protocol.ErrNoTarget
			ack.Message = "no enemy at target"
		}
		return ack

	case protocol.TypeLook:
		var m protocol.LookMsg
		_ = json.Unmarshal(msg, &m)
		v, err := s.sess.Snapshot(ctx)
		if err != nil {
			return sessionError(m.ID, err)
		}
		return viewMsg(m.ID, v)
	}
	return protocol.NewError("", protocol.ErrBadRequest, "unexpected "+base.Type)
}

func viewMsg(replyTo string, v world.View) protocol.ViewMsg {
	return protocol.ViewMsg{Type: protocol.TypeView, ProtocolVersion: protocol.Version, ReplyTo: replyTo, View: v}
}

func sessionError(replyTo string, err error) protocol.ErrorMsg {
	switch {
	case errors.Is(err, world.ErrBlocked):
		return protocol.NewError(replyTo, protocol.ErrBlocked, err.Error())
	case errors.Is(err, world.ErrStopped), errors.Is(err, context.Canceled):
		return protocol.NewError(replyTo, protocol.ErrUnavailable, err.Error())
	}
	return protocol.NewError(replyTo, protocol.ErrInternal, err.Error())
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (chan []byte, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return nil, false
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return nil, false
	}
	if err := protocol.ValidateClient(protocol.TypeHello, msg); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
		return nil, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}

	v, err := s.sess.Snapshot(ctx)
	if err != nil {
		closeWith(conn, websocket.CloseTryAgainLater, "session unavailable")
		return nil, false
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldParams:     s.params,
		Terrain:         protocol.DigestRef{Digest: s.cat.Digest, Count: len(s.cat.Defs)},
	}
	catalog := protocol.CatalogMsg{
		Type:            protocol.TypeCatalog,
		ProtocolVersion: protocol.Version,
		Name:            "terrain",
		Digest:          s.cat.Digest,
		Data:            s.cat.Defs,
	}
	for _, m := range []any{welcome, catalog, viewMsg("", v)} {
		if err := writeJSON(conn, m); err != nil {
			return nil, false
		}
	}
	return make(chan []byte, maxQ), true
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
