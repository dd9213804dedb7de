// Package core owns the room state machines, the authoritative
// simulation, and the message protocol. It never touches transport
// resources beyond the SignalConnection seam.
package core

import "github.com/arenalab/skirmish/internal/domain"

// Frame is a single outbound wire message, already encoded.
type Frame []byte

// SignalConnection is the send side of a member's persistent
// connection. Owned by the transport adapter; rooms call Close only
// when force-disconnecting members on lobby dispatch.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// JoinOptions carries the client-supplied display metadata. Identity
// is already authenticated by the surrounding system before a join
// reaches a room.
type JoinOptions struct {
	Name  string `json:"name" validate:"omitempty,max=36"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// Room is the contract the registry and the transport drive. A room
// serializes message handling against its own timer internally;
// callers may invoke these from any goroutine.
type Room interface {
	ID() domain.RoomID
	Type() domain.RoomType

	Join(sid domain.SessionID, conn SignalConnection, opts JoinOptions) error
	Leave(sid domain.SessionID)
	HandleMessage(sid domain.SessionID, data []byte)

	MemberCount() int
	Disposed() bool

	// Dispose cancels the room's timer. Only the registry calls it.
	Dispose()
}

// RoomInfo is a read-only view for the HTTP API.
type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Type        domain.RoomType `json:"type"`
	MemberCount int             `json:"memberCount"`
}
