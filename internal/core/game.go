package core

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenalab/skirmish/internal/domain"
)

// GameConfig holds the room construction inputs. Values are fixed for
// the lifetime of a room.
type GameConfig struct {
	TickRate    int
	MapWidth    float64
	MapHeight   float64
	PlayerSpeed float64
	MaxPlayers  int
}

func (c GameConfig) normalized() GameConfig {
	if c.TickRate <= 0 {
		c.TickRate = 20
	}
	if c.MapWidth <= 0 {
		c.MapWidth = 800
	}
	if c.MapHeight <= 0 {
		c.MapHeight = 600
	}
	if c.PlayerSpeed <= 0 {
		c.PlayerSpeed = 200
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 8
	}
	return c
}

const (
	// frictionPerTick damps velocity multiplicatively every tick.
	frictionPerTick = 0.9
	// impulseRatio scales one input message into a velocity impulse.
	// Impulses between ticks accumulate; only friction decays them.
	impulseRatio = 0.1
)

var palette = []string{"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4", "#ffeaa7", "#dfe6e9"}

// gameRoom runs the authoritative fixed-rate simulation. All state is
// guarded by mu; the tick goroutine and transport-delivered messages
// take the same lock, so their mutations never interleave.
type gameRoom struct {
	id  domain.RoomID
	cfg GameConfig

	mu       sync.Mutex
	players  map[domain.SessionID]*domain.Player
	conns    map[domain.SessionID]SignalConnection
	gameTime float64
	playing  bool
	disposed bool

	stop    chan struct{}
	rng     *rand.Rand
	clock   func() time.Time
	metrics *RoomMetrics
	chat    *sessionRateLimiter
}

func newGameRoom(id domain.RoomID, cfg GameConfig, rng *rand.Rand, clock func() time.Time) *gameRoom {
	return &gameRoom{
		id:      id,
		cfg:     cfg.normalized(),
		players: make(map[domain.SessionID]*domain.Player),
		conns:   make(map[domain.SessionID]SignalConnection),
		stop:    make(chan struct{}),
		rng:     rng,
		clock:   clock,
		metrics: &RoomMetrics{},
		chat:    newSessionRateLimiter(10, 5*time.Second),
	}
}

func (r *gameRoom) ID() domain.RoomID     { return r.id }
func (r *gameRoom) Type() domain.RoomType { return domain.RoomTypeGame }

func (r *gameRoom) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *gameRoom) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

func (r *gameRoom) Metrics() *RoomMetrics { return r.metrics }

// start launches the tick loop. The loop runs independently of any
// client connection until Dispose.
func (r *gameRoom) start() {
	r.mu.Lock()
	r.playing = true
	r.mu.Unlock()
	go r.run()
	log.Info().Str("module", "core.game").Str("room", string(r.id)).Int("tick_rate", r.cfg.TickRate).Msg("game room started")
}

func (r *gameRoom) run() {
	interval := time.Second / time.Duration(r.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dt := 1.0 / float64(r.cfg.TickRate)
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			start := time.Now()
			r.step(dt)
			r.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}

// step advances the simulation by dt seconds and broadcasts the full
// state snapshot. A step on a disposed room is a no-op; the disposed
// check and every mutation happen under the same lock, so no zombie
// tick can touch the player map after disposal.
func (r *gameRoom) step(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.gameTime += dt
	for _, p := range r.players {
		integrate(p, dt, r.cfg.MapWidth, r.cfg.MapHeight)
	}
	sendAll(r.conns, r.stateMessageLocked(), r.metrics)
}

// integrate applies one tick of motion to a single player. Order is
// fixed: integrate position, apply friction, clamp to bounds. Each
// player is independent within a tick.
func integrate(p *domain.Player, dt, width, height float64) {
	p.X += p.VelocityX * dt
	p.Y += p.VelocityY * dt
	p.VelocityX *= frictionPerTick
	p.VelocityY *= frictionPerTick
	if !isFinite(p.VelocityX) {
		p.VelocityX = 0
	}
	if !isFinite(p.VelocityY) {
		p.VelocityY = 0
	}
	if !isFinite(p.X) {
		p.X = 0
	}
	if !isFinite(p.Y) {
		p.Y = 0
	}
	p.X = clamp(p.X, 0, width)
	p.Y = clamp(p.Y, 0, height)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (r *gameRoom) stateMessageLocked() gameStateMessage {
	players := make([]PlayerSnapshot, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, snapshotPlayer(p))
	}
	return gameStateMessage{
		Type:      kindState,
		Players:   players,
		GameTime:  r.gameTime,
		IsPlaying: r.playing,
	}
}

// Join spawns a player at a random position inside the map bounds and
// sends the joiner a full snapshot before it observes any broadcast.
func (r *gameRoom) Join(sid domain.SessionID, conn SignalConnection, opts JoinOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return domain.ErrRoomDisposed
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		return domain.ErrRoomFull
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("Player %d", len(r.players)+1)
	}
	p, err := domain.NewPlayer(sid, name)
	if err != nil {
		return err
	}
	p.Color = opts.Color
	if p.Color == "" {
		p.Color = palette[r.rng.Intn(len(palette))]
	}
	p.X = r.rng.Float64() * r.cfg.MapWidth
	p.Y = r.rng.Float64() * r.cfg.MapHeight

	r.players[sid] = p
	r.conns[sid] = conn
	log.Info().Str("module", "core.game").Str("room", string(r.id)).Str("sid", string(sid)).Str("name", p.Name).Msg("player joined")

	sendTo(conn, r.stateMessageLocked(), r.metrics)
	return nil
}

// Leave removes the player immediately. Disconnects reach the room
// only through this path.
func (r *gameRoom) Leave(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[sid]; !ok {
		return
	}
	delete(r.players, sid)
	delete(r.conns, sid)
	r.chat.Forget(sid)
	log.Info().Str("module", "core.game").Str("room", string(r.id)).Str("sid", string(sid)).Msg("player left")
}

// HandleMessage dispatches the game room's closed set of inbound
// kinds. Unknown kinds and malformed payloads are dropped.
func (r *gameRoom) HandleMessage(sid domain.SessionID, data []byte) {
	kind, ok := decodeEnvelope(data)
	if !ok {
		r.metrics.IncInputDiscarded()
		return
	}
	switch kind {
	case kindPlayerInput:
		r.handleInput(sid, data)
	case kindChat, kindChatShort:
		r.handleChat(sid, data)
	default:
		log.Debug().Str("module", "core.game").Str("kind", kind).Msg("ignoring unknown message kind")
	}
}

func (r *gameRoom) handleInput(sid domain.SessionID, data []byte) {
	in, ok := decodeInput(data)
	if !ok {
		r.metrics.IncInputDiscarded()
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	p, ok := r.players[sid]
	if !ok {
		return
	}
	impulse := r.cfg.PlayerSpeed * impulseRatio
	if in.Left {
		p.VelocityX -= impulse
	}
	if in.Right {
		p.VelocityX += impulse
	}
	if in.Up {
		p.VelocityY -= impulse
	}
	if in.Down {
		p.VelocityY += impulse
	}
	r.metrics.IncInputAccepted()
}

func (r *gameRoom) handleChat(sid domain.SessionID, data []byte) {
	msg, ok := decodeChat(data)
	if !ok {
		return
	}
	if !r.chat.Allow(sid) {
		log.Debug().Str("module", "core.game").Str("sid", string(sid)).Msg("chat rate limited")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	p, ok := r.players[sid]
	if !ok {
		return
	}
	sendAll(r.conns, chatMessage{
		Type:       kindChat,
		PlayerID:   sid,
		PlayerName: p.Name,
		Message:    msg.Message,
		Timestamp:  r.clock().UnixMilli(),
	}, r.metrics)
}

// Dispose stops the tick loop. Guarded by the room lock, so a tick
// that races with disposal either completes fully before it or sees
// the flag and does nothing. A join that landed after the registry's
// emptiness check holds the same lock, so disposal is refused while
// members remain and the room keeps ticking for them.
func (r *gameRoom) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || len(r.players) > 0 {
		return
	}
	r.disposed = true
	r.playing = false
	close(r.stop)
	log.Info().Str("module", "core.game").Str("room", string(r.id)).Msg("game room disposed")
}
