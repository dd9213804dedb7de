// Package signal binds websocket connections to rooms. It owns every
// transport resource; rooms only ever see the SignalConnection seam.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/arenalab/skirmish/internal/core"
	"github.com/arenalab/skirmish/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Registry  *core.Registry
	ReadLimit int64
}

func NewController(reg *core.Registry, readLimit int64) *Controller {
	return &Controller{Registry: reg, ReadLimit: readLimit}
}

// wsConn wraps a websocket with a buffered send queue. TrySend never
// blocks; a full queue drops the frame so a slow client cannot stall
// a room's tick.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops accepting frames and hands the socket to writePump,
// which drains whatever is already queued before closing it. Frames
// sent just before Close, like gameStart on lobby dispatch, still
// reach the client.
func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the connection and joins the session to the
// requested room type. Query params: room (lobby|game), name, color.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	sid := domain.SessionID(c.GetString("client_token"))
	if sid == "" {
		sid = domain.SessionID(uuid.NewString())
	}
	roomType := domain.RoomType(c.DefaultQuery("room", string(domain.RoomTypeLobby)))
	opts := core.JoinOptions{Name: c.Query("name"), Color: c.Query("color")}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "signal").Err(err).Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(roomType)).Msg("new WS connection")

	conn := &wsConn{conn: ws, send: make(chan core.Frame, 32)}

	room, err := ctl.Registry.CreateOrJoin(roomType, sid, conn, opts)
	if err != nil {
		// Rejected join: the room was not mutated. Report and close.
		ctl.reject(ws, err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, room, conn)
}

func (ctl *Controller) reject(ws *websocket.Conn, err error) {
	reason := "join rejected"
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		reason = "room_full"
	case errors.Is(err, domain.ErrUnknownRoomType):
		reason = "unknown_room_type"
	}
	payload, _ := json.Marshal(map[string]any{"type": "error", "error": reason})
	_ = ws.WriteMessage(websocket.TextMessage, payload)
	_ = ws.Close()
	log.Info().Str("module", "signal").Str("reason", reason).Err(err).Msg("join rejected")
}
