// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxNameLen = 36

var (
	ErrNameTooLong = errors.New("player name too long")
)

// SessionID identifies a single client connection. Assigned by the
// transport; a session belongs to at most one room at a time.
type SessionID string

// Player is the authoritative per-session record owned by exactly one
// room. It never holds a reference back to its room.
type Player struct {
	ID    SessionID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`

	// Game room state.
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VelocityX float64 `json:"velocityX"`
	VelocityY float64 `json:"velocityY"`
	Rotation  float64 `json:"rotation"`
	Health    int     `json:"health"`
	Score     int     `json:"score"`

	// Lobby state.
	Ready bool `json:"ready"`
}

// NewPlayer keeps construction obvious and validates the display name.
func NewPlayer(id SessionID, name string) (*Player, error) {
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	return &Player{ID: id, Name: name, Health: 100}, nil
}
