package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arenalab/skirmish/internal/domain"
)

type lobbyPhase int

const (
	phaseOpen lobbyPhase = iota
	phaseStarting
	phaseDispatching
	phaseDisposed
)

const (
	lobbyCapacity    = 8
	countdownSeconds = 5
	// readyQuorum: a solitary member can never trigger a start.
	readyQuorum = 2
)

// lobbyRoom tracks readiness and runs the pre-game countdown. Phases
// move Open -> Starting -> Dispatching -> Disposed; the countdown
// timer is owned by the room and cancelled on every path that leaves
// Starting.
type lobbyRoom struct {
	id domain.RoomID

	mu        sync.Mutex
	phase     lobbyPhase
	players   map[domain.SessionID]*domain.Player
	conns     map[domain.SessionID]SignalConnection
	countdown int
	cancel    chan struct{}

	capacity int
	interval time.Duration
	clock    func() time.Time
	metrics  *RoomMetrics
	chat     *sessionRateLimiter

	// onDisposed is set by the registry so the lobby can request its
	// own destruction after dispatching. Called without the room lock.
	onDisposed func(Room)
}

func newLobbyRoom(id domain.RoomID, clock func() time.Time) *lobbyRoom {
	return &lobbyRoom{
		id:       id,
		players:  make(map[domain.SessionID]*domain.Player),
		conns:    make(map[domain.SessionID]SignalConnection),
		capacity: lobbyCapacity,
		interval: time.Second,
		clock:    clock,
		metrics:  &RoomMetrics{},
		chat:     newSessionRateLimiter(10, 5*time.Second),
	}
}

func (r *lobbyRoom) ID() domain.RoomID     { return r.id }
func (r *lobbyRoom) Type() domain.RoomType { return domain.RoomTypeLobby }

func (r *lobbyRoom) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *lobbyRoom) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == phaseDisposed
}

func (r *lobbyRoom) Metrics() *RoomMetrics { return r.metrics }

func (r *lobbyRoom) stateMessageLocked() lobbyStateMessage {
	players := make([]LobbyPlayerSnapshot, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, snapshotLobbyPlayer(p))
	}
	return lobbyStateMessage{
		Type:         kindLobbyState,
		Players:      players,
		GameStarting: r.phase == phaseStarting,
		Countdown:    r.countdown,
	}
}

// Join is legal while Open or Starting. The joiner gets the full lobby
// state before anyone else hears about it; a joiner arriving mid
// countdown is not ready, so the countdown is cancelled.
func (r *lobbyRoom) Join(sid domain.SessionID, conn SignalConnection, opts JoinOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase >= phaseDispatching {
		return domain.ErrRoomDisposed
	}
	if len(r.players) >= r.capacity {
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
	r.players[sid] = p
	r.conns[sid] = conn
	log.Info().Str("module", "core.lobby").Str("room", string(r.id)).Str("sid", string(sid)).Str("name", p.Name).Msg("player joined lobby")

	sendTo(conn, r.stateMessageLocked(), r.metrics)
	sendAll(r.conns, presenceMessage{Type: kindPlayerJoined, ID: sid, Name: p.Name}, r.metrics)

	if r.phase == phaseStarting {
		// The newcomer is unready by definition.
		r.cancelCountdownLocked()
	}
	sendAll(r.conns, r.stateMessageLocked(), r.metrics)
	return nil
}

func (r *lobbyRoom) Leave(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == phaseDisposed {
		return
	}
	p, ok := r.players[sid]
	if !ok {
		return
	}
	delete(r.players, sid)
	delete(r.conns, sid)
	r.chat.Forget(sid)
	log.Info().Str("module", "core.lobby").Str("room", string(r.id)).Str("sid", string(sid)).Msg("player left lobby")

	sendAll(r.conns, presenceMessage{Type: kindPlayerLeft, ID: sid, Name: p.Name}, r.metrics)
	if r.phase == phaseStarting && len(r.players) < readyQuorum {
		r.cancelCountdownLocked()
	}
	sendAll(r.conns, r.stateMessageLocked(), r.metrics)
}

// HandleMessage dispatches the lobby's closed set of inbound kinds.
func (r *lobbyRoom) HandleMessage(sid domain.SessionID, data []byte) {
	kind, ok := decodeEnvelope(data)
	if !ok {
		return
	}
	switch kind {
	case kindReady:
		r.handleReady(sid)
	case kindChat, kindChatShort:
		r.handleChat(sid, data)
	default:
		log.Debug().Str("module", "core.lobby").Str("kind", kind).Msg("ignoring unknown message kind")
	}
}

// handleReady flips the sender's readiness and re-evaluates the group.
// A no-op once dispatch has begun.
func (r *lobbyRoom) handleReady(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase >= phaseDispatching {
		return
	}
	p, ok := r.players[sid]
	if !ok {
		return
	}
	p.Ready = !p.Ready

	all := len(r.players) >= readyQuorum
	for _, m := range r.players {
		if !m.Ready {
			all = false
			break
		}
	}
	switch {
	case all && r.phase == phaseOpen:
		r.startCountdownLocked()
	case !all && r.phase == phaseStarting:
		r.cancelCountdownLocked()
	}
	sendAll(r.conns, r.stateMessageLocked(), r.metrics)
}

func (r *lobbyRoom) handleChat(sid domain.SessionID, data []byte) {
	msg, ok := decodeChat(data)
	if !ok {
		return
	}
	if !r.chat.Allow(sid) {
		log.Debug().Str("module", "core.lobby").Str("sid", string(sid)).Msg("chat rate limited")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase >= phaseDispatching {
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

func (r *lobbyRoom) startCountdownLocked() {
	r.phase = phaseStarting
	r.countdown = countdownSeconds
	stop := make(chan struct{})
	r.cancel = stop
	go r.runCountdown(stop)
	log.Info().Str("module", "core.lobby").Str("room", string(r.id)).Int("seconds", countdownSeconds).Msg("countdown started")
}

func (r *lobbyRoom) runCountdown(stop chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.countdownStep() {
				return
			}
		}
	}
}

// countdownStep advances the countdown by one second. Returns true
// when the timer goroutine should exit, either because the countdown
// was cancelled or because dispatch ran.
func (r *lobbyRoom) countdownStep() bool {
	r.mu.Lock()
	if r.phase != phaseStarting {
		r.mu.Unlock()
		return true
	}
	r.countdown--
	if r.countdown > 0 {
		sendAll(r.conns, r.stateMessageLocked(), r.metrics)
		r.mu.Unlock()
		return false
	}
	r.dispatchLocked()
	hook := r.onDisposed
	r.mu.Unlock()
	if hook != nil {
		hook(r)
	}
	return true
}

// dispatchLocked broadcasts the roster, force-disconnects every member
// and leaves the room Disposed. Members are expected to reconnect
// against a game room using the roster.
func (r *lobbyRoom) dispatchLocked() {
	r.phase = phaseDispatching
	r.cancel = nil

	roster := make([]RosterEntry, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, RosterEntry{ID: p.ID, Name: p.Name})
	}
	sendAll(r.conns, gameStartMessage{Type: kindGameStart, Players: roster}, r.metrics)
	log.Info().Str("module", "core.lobby").Str("room", string(r.id)).Int("players", len(roster)).Msg("game start dispatched")

	for sid, conn := range r.conns {
		conn.Close()
		delete(r.conns, sid)
		delete(r.players, sid)
	}
	r.phase = phaseDisposed
}

func (r *lobbyRoom) cancelCountdownLocked() {
	if r.cancel != nil {
		close(r.cancel)
		r.cancel = nil
	}
	r.countdown = 0
	r.phase = phaseOpen
	log.Info().Str("module", "core.lobby").Str("room", string(r.id)).Msg("countdown cancelled")
}

// Dispose cancels any active countdown. Idempotent.
func (r *lobbyRoom) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == phaseDisposed {
		return
	}
	if r.cancel != nil {
		close(r.cancel)
		r.cancel = nil
	}
	r.phase = phaseDisposed
	log.Info().Str("module", "core.lobby").Str("room", string(r.id)).Msg("lobby disposed")
}
