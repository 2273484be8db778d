package protocol

import (
	"github.com/Carbonadoks/claudecoderpg/internal/sim/catalogs"
	"github.com/Carbonadoks/claudecoderpg/internal/sim/world"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldParams     WorldParams `json:"world_params"`
	Terrain         DigestRef   `json:"terrain"`
}

type WorldParams struct {
	ChunkSize  int   `json:"chunk_size"`
	Seed       int64 `json:"seed"`
	ViewRange  int   `json:"view_range"`
	LoadRadius int   `json:"load_radius"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CATALOG (server -> client): the terrain table clients use to decode glyphs.
type CatalogMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	Name            string             `json:"name"`
	Digest          string             `json:"digest"`
	Data            []catalogs.Terrain `json:"data"`
}

// MOVE (client -> server): teleport the observer to a walkable tile.
type MoveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Pos             [2]int `json:"pos"`
}

// DEFEAT (client -> server): remove the enemy record at Pos.
type DefeatMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Pos             [2]int `json:"pos"`
}

// LOOK (client -> server): resend the current view.
type LookMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
}

// VIEW (server -> client)
type ViewMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ReplyTo         string     `json:"reply_to,omitempty"`
	View            world.View `json:"view"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReplyTo         string `json:"reply_to,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(replyTo, code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ReplyTo: replyTo, Code: code, Message: msg}
}
