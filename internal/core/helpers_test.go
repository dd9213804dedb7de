package core

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/arenalab/skirmish/internal/domain"
)

// recordingConn captures every frame a room sends to one member.
type recordingConn struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
}

func (c *recordingConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	cp := make(Frame, len(f))
	copy(cp, f)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *recordingConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// decoded unmarshals every captured frame into a generic map.
func (c *recordingConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("frame is not valid JSON: %v", err)
		}
		out = append(out, m)
	}
	return out
}

// lastOfKind returns the most recent frame with the given type tag.
func (c *recordingConn) lastOfKind(t *testing.T, kind string) (map[string]any, bool) {
	t.Helper()
	msgs := c.decoded(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i]["type"] == kind {
			return msgs[i], true
		}
	}
	return nil, false
}

func (c *recordingConn) hasKind(t *testing.T, kind string) bool {
	t.Helper()
	_, ok := c.lastOfKind(t, kind)
	return ok
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func testGameConfig() GameConfig {
	return GameConfig{
		TickRate:    20,
		MapWidth:    800,
		MapHeight:   600,
		PlayerSpeed: 200,
		MaxPlayers:  8,
	}
}

func newTestGameRoom(cfg GameConfig) *gameRoom {
	return newGameRoom("game-test", cfg, rand.New(rand.NewSource(1)), fixedClock(time.Unix(1700000000, 0)))
}

func newTestLobby() *lobbyRoom {
	return newLobbyRoom("lobby-test", fixedClock(time.Unix(1700000000, 0)))
}

func joinGame(t *testing.T, r *gameRoom, sid domain.SessionID, opts JoinOptions) *recordingConn {
	t.Helper()
	conn := &recordingConn{}
	if err := r.Join(sid, conn, opts); err != nil {
		t.Fatalf("join %s: %v", sid, err)
	}
	return conn
}

func joinLobby(t *testing.T, r *lobbyRoom, sid domain.SessionID, opts JoinOptions) *recordingConn {
	t.Helper()
	conn := &recordingConn{}
	if err := r.Join(sid, conn, opts); err != nil {
		t.Fatalf("join %s: %v", sid, err)
	}
	return conn
}
