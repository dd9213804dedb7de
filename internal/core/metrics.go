package core

import "sync/atomic"

// RoomMetrics tracks per-room runtime counters for the metrics
// endpoint. All fields are updated atomically off the hot path.
type RoomMetrics struct {
	TickCount       int64
	TotalTickNs     int64
	InputsAccepted  int64
	InputsDiscarded int64
	Broadcasts      int64
	SendsDropped    int64
}

func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

func (m *RoomMetrics) IncInputAccepted()  { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncInputDiscarded() { atomic.AddInt64(&m.InputsDiscarded, 1) }
func (m *RoomMetrics) IncBroadcast()      { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *RoomMetrics) IncSendDropped()    { atomic.AddInt64(&m.SendsDropped, 1) }

// Snapshot returns a read-only copy for HTTP output.
func (m *RoomMetrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"tick_count":       ticks,
		"avg_tick_ms":      avgMs,
		"inputs_accepted":  atomic.LoadInt64(&m.InputsAccepted),
		"inputs_discarded": atomic.LoadInt64(&m.InputsDiscarded),
		"broadcasts":       atomic.LoadInt64(&m.Broadcasts),
		"sends_dropped":    atomic.LoadInt64(&m.SendsDropped),
	}
}
