package core

import "github.com/arenalab/skirmish/internal/domain"

// Replication layer. Which fields leave the server is decided here and
// nowhere else: the snapshot structs below are the hand-maintained
// field lists for each room type.

// PlayerSnapshot is the per-player replicated view for the game room.
type PlayerSnapshot struct {
	ID        domain.SessionID `json:"id"`
	Name      string           `json:"name"`
	Color     string           `json:"color"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	VelocityX float64          `json:"velocityX"`
	VelocityY float64          `json:"velocityY"`
	Rotation  float64          `json:"rotation"`
	Health    int              `json:"health"`
	Score     int              `json:"score"`
}

type gameStateMessage struct {
	Type      string           `json:"type"`
	Players   []PlayerSnapshot `json:"players"`
	GameTime  float64          `json:"gameTime"`
	IsPlaying bool             `json:"isPlaying"`
}

// LobbyPlayerSnapshot is the per-player replicated view for the lobby.
type LobbyPlayerSnapshot struct {
	ID    domain.SessionID `json:"id"`
	Name  string           `json:"name"`
	Ready bool             `json:"ready"`
}

type lobbyStateMessage struct {
	Type         string                `json:"type"`
	Players      []LobbyPlayerSnapshot `json:"players"`
	GameStarting bool                  `json:"gameStarting"`
	Countdown    int                   `json:"countdown"`
}

type chatMessage struct {
	Type       string           `json:"type"`
	PlayerID   domain.SessionID `json:"playerId"`
	PlayerName string           `json:"playerName"`
	Message    string           `json:"message"`
	Timestamp  int64            `json:"timestamp"`
}

type presenceMessage struct {
	Type string           `json:"type"`
	ID   domain.SessionID `json:"id"`
	Name string           `json:"name"`
}

// RosterEntry identifies a player handed off from lobby to game.
type RosterEntry struct {
	ID   domain.SessionID `json:"id"`
	Name string           `json:"name"`
}

type gameStartMessage struct {
	Type    string        `json:"type"`
	Players []RosterEntry `json:"players"`
}

func snapshotPlayer(p *domain.Player) PlayerSnapshot {
	return PlayerSnapshot{
		ID:        p.ID,
		Name:      p.Name,
		Color:     p.Color,
		X:         p.X,
		Y:         p.Y,
		VelocityX: p.VelocityX,
		VelocityY: p.VelocityY,
		Rotation:  p.Rotation,
		Health:    p.Health,
		Score:     p.Score,
	}
}

func snapshotLobbyPlayer(p *domain.Player) LobbyPlayerSnapshot {
	return LobbyPlayerSnapshot{ID: p.ID, Name: p.Name, Ready: p.Ready}
}
