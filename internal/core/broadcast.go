package core

import (
	"github.com/rs/zerolog/log"

	"github.com/arenalab/skirmish/internal/domain"
)

// sendAll encodes v once and fans it out to every connection. TrySend
// never blocks, so calling this while holding a room lock cannot stall
// the tick; slow receivers drop the frame and the transport recovers
// on its own.
func sendAll(conns map[domain.SessionID]SignalConnection, v any, m *RoomMetrics) {
	frame, ok := encode(v)
	if !ok {
		return
	}
	for sid, c := range conns {
		if err := c.TrySend(frame); err != nil {
			m.IncSendDropped()
			log.Debug().Str("module", "core.room").Str("sid", string(sid)).Err(err).Msg("send dropped")
		}
	}
	m.IncBroadcast()
}

// sendTo delivers a single message to one member.
func sendTo(conn SignalConnection, v any, m *RoomMetrics) {
	frame, ok := encode(v)
	if !ok {
		return
	}
	if err := conn.TrySend(frame); err != nil {
		m.IncSendDropped()
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
