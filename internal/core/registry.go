package core

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/arenalab/skirmish/internal/domain"
)

// Registry creates and destroys room instances. One default instance
// per registered type; a new one is created on demand once the old one
// is gone. Only the registry destroys rooms, and only when their
// member map is empty.
type Registry struct {
	game GameConfig

	mu    sync.RWMutex
	rooms map[domain.RoomType]Room

	clock   func() time.Time
	newRand func() *rand.Rand
}

func NewRegistry(cfg GameConfig) *Registry {
	return &Registry{
		game:  cfg.normalized(),
		rooms: make(map[domain.RoomType]Room),
		clock: time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// CreateOrJoin resolves the default room of the requested type,
// creating one if needed, and joins the session to it. An invalid join
// option falls back to the server-chosen default for that field; the
// remaining fields are kept.
func (reg *Registry) CreateOrJoin(rt domain.RoomType, sid domain.SessionID, conn SignalConnection, opts JoinOptions) (Room, error) {
	if rt != domain.RoomTypeLobby && rt != domain.RoomTypeGame {
		return nil, domain.ErrUnknownRoomType
	}
	if err := validate.Struct(opts); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return nil, err
		}
		for _, fe := range fields {
			log.Debug().Str("module", "core.registry").Str("field", fe.Field()).Str("tag", fe.Tag()).Msg("invalid join option, using default")
			switch fe.Field() {
			case "Name":
				opts.Name = ""
			case "Color":
				opts.Color = ""
			}
		}
	}

	// A lobby can dispose itself between lookup and join; retry once
	// against a fresh instance.
	for attempt := 0; attempt < 2; attempt++ {
		room := reg.roomFor(rt)
		err := room.Join(sid, conn, opts)
		if errors.Is(err, domain.ErrRoomDisposed) {
			reg.drop(room)
			continue
		}
		if err != nil {
			return nil, err
		}
		return room, nil
	}
	return nil, domain.ErrRoomDisposed
}

func (reg *Registry) roomFor(rt domain.RoomType) Room {
	reg.mu.RLock()
	room, ok := reg.rooms[rt]
	reg.mu.RUnlock()
	if ok && !room.Disposed() {
		return room
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room, ok = reg.rooms[rt]; ok && !room.Disposed() {
		return room
	}

	id := domain.RoomID(uuid.NewString())
	switch rt {
	case domain.RoomTypeGame:
		g := newGameRoom(id, reg.game, reg.newRand(), reg.clock)
		g.start()
		room = g
	default:
		l := newLobbyRoom(id, reg.clock)
		l.onDisposed = reg.drop
		room = l
	}
	reg.rooms[rt] = room
	log.Info().Str("module", "core.registry").Str("type", string(rt)).Str("room", string(room.ID())).Msg("room created")
	return room
}

// Leave detaches a session from its room and destroys the room once it
// has emptied. An empty lobby stays Open for future joiners; idle
// cleanup of lobbies is left to the transport's policy.
func (reg *Registry) Leave(room Room, sid domain.SessionID) {
	room.Leave(sid)
	if room.MemberCount() > 0 {
		return
	}
	if room.Disposed() || room.Type() == domain.RoomTypeGame {
		reg.drop(room)
	}
}

// drop removes the room from the table and cancels its timer. Destroy
// is refused while members remain: the room itself re-checks under
// its own lock, so a join racing the emptiness check keeps the room
// alive and it is destroyed once that member leaves.
func (reg *Registry) drop(room Room) {
	if room.MemberCount() > 0 && !room.Disposed() {
		return
	}
	reg.mu.Lock()
	if current, ok := reg.rooms[room.Type()]; ok && current == room {
		delete(reg.rooms, room.Type())
	}
	reg.mu.Unlock()
	room.Dispose()
	if room.Disposed() {
		log.Info().Str("module", "core.registry").Str("type", string(room.Type())).Str("room", string(room.ID())).Msg("room destroyed")
	}
}

// Infos lists the live rooms for the HTTP API.
func (reg *Registry) Infos() []RoomInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]RoomInfo, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, RoomInfo{ID: r.ID(), Type: r.Type(), MemberCount: r.MemberCount()})
	}
	return out
}

// MetricsSnapshot aggregates per-room counters keyed by room type.
func (reg *Registry) MetricsSnapshot() map[string]any {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make(map[string]any, len(reg.rooms))
	for rt, r := range reg.rooms {
		type metered interface{ Metrics() *RoomMetrics }
		if m, ok := r.(metered); ok {
			out[string(rt)] = m.Metrics().Snapshot()
		}
	}
	return out
}
