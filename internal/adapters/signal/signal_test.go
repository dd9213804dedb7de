package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arenalab/skirmish/internal/core"
)

// Lobby dispatch queues gameStart and closes the connection right
// after. The queued frame must still reach the client, followed by a
// normal close frame.
func TestCloseDeliversQueuedFrames(t *testing.T) {
	ctl := NewController(nil, 0)
	conns := make(chan *wsConn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &wsConn{conn: ws, send: make(chan core.Frame, 32)}
		go ctl.writePump(context.Background(), c)
		conns <- c
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	conn := <-conns
	frame := core.Frame(`{"type":"gameStart","players":[]}`)
	if err := conn.TrySend(frame); err != nil {
		t.Fatalf("TrySend: %v", err)
	}
	conn.Close()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("queued frame lost across Close: %v", err)
	}
	if string(data) != string(frame) {
		t.Fatalf("frame = %s, want %s", data, frame)
	}
	if _, _, err := client.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure after drain, got %v", err)
	}
}

func TestTrySendAfterCloseFails(t *testing.T) {
	c := &wsConn{send: make(chan core.Frame, 1)}
	c.Close()
	if err := c.TrySend(core.Frame(`{}`)); err == nil {
		t.Fatalf("TrySend on a closed connection must fail")
	}
	// Idempotent.
	c.Close()
}
