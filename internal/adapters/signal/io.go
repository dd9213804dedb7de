package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/arenalab/skirmish/internal/core"
	"github.com/arenalab/skirmish/internal/domain"
)

const writeWait = 5 * time.Second

// writePump owns the underlying socket. After Close the send queue is
// drained to the wire, then a close frame goes out and the socket is
// torn down.
func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	defer c.conn.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump forwards inbound frames to the room. A read error is the
// only disconnect signal the room ever sees, surfaced as a Leave.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sid domain.SessionID, room core.Room, c *wsConn) {
	defer func() {
		ctl.Registry.Leave(room, sid)
		c.Close()
		cancel()
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closed")
	}()

	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			room.HandleMessage(sid, data)
		}
	}
}
