package app

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/studyroom/internal/core"
	"github.com/dkeye/studyroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenceEvent struct {
	Type         string      `json:"type"`
	ConnectionID core.ConnID `json:"connectionId"`
}

// Presence maintains live room membership and announces joins and leaves
// to the remaining members. Any I/O (room lookup, password check) must
// happen before these calls; membership mutation itself never blocks.
type Presence struct {
	Registry *Registry
	Rooms    core.RoomFactory

	mu    sync.Mutex
	locks map[domain.RoomID]*sync.Mutex
}

func NewPresence(reg *Registry, rooms core.RoomFactory) *Presence {
	return &Presence{
		Registry: reg,
		Rooms:    rooms,
		locks:    make(map[domain.RoomID]*sync.Mutex),
	}
}

// roomLock serializes join/leave sequences per room so membership changes
// and their announcements go out in processing order. Unrelated rooms never
// contend on it. The mutex is returned already locked: Leave drops the
// entry for an emptied room, so a waiter must re-check that the mutex it
// acquired is still the room's current one and retry against the fresh
// entry when it is not.
func (p *Presence) roomLock(id domain.RoomID) *sync.Mutex {
	for {
		p.mu.Lock()
		l, ok := p.locks[id]
		if !ok {
			l = &sync.Mutex{}
			p.locks[id] = l
		}
		p.mu.Unlock()

		l.Lock()
		p.mu.Lock()
		current := p.locks[id]
		p.mu.Unlock()
		if current == l {
			return l
		}
		l.Unlock()
	}
}

func (p *Presence) dropLock(id domain.RoomID) {
	p.mu.Lock()
	delete(p.locks, id)
	p.mu.Unlock()
}

// Join adds the connection to the room. Idempotent: a repeat join neither
// duplicates membership nor re-announces the connection.
func (p *Presence) Join(sid core.ConnID, roomID domain.RoomID) bool {
	sess, ok := p.Registry.Session(sid)
	if !ok {
		log.Warn().Str("module", "app.presence").Str("sid", string(sid)).Msg("join from unbound connection")
		return false
	}

	l := p.roomLock(roomID)
	defer l.Unlock()

	room := p.Rooms.GetOrCreate(roomID)
	if !room.AddMember(sid, sess) {
		return false
	}
	p.Registry.AddRoom(sid, roomID)

	res := room.Broadcast(sid, encodeEvent(presenceEvent{Type: "user-connected", ConnectionID: sid}))
	logDropped("user-connected", roomID, res)
	return true
}

// Leave removes the connection from one room and announces the departure
// to whoever is left.
func (p *Presence) Leave(sid core.ConnID, roomID domain.RoomID) {
	l := p.roomLock(roomID)
	defer l.Unlock()

	p.Registry.RemoveRoom(sid, roomID)
	room, ok := p.Rooms.Get(roomID)
	if !ok {
		return
	}
	if !room.RemoveMember(sid) {
		return
	}
	res := room.Broadcast(sid, encodeEvent(presenceEvent{Type: "user-disconnected", ConnectionID: sid}))
	logDropped("user-disconnected", roomID, res)

	// Ephemeral rooms die with their last member.
	if room.MemberCount() == 0 {
		p.Rooms.StopRoom(roomID)
		p.dropLock(roomID)
	}
}

// Disconnect is the unconditional cleanup path, driven by the transport
// close event. It must fire for abrupt losses exactly like graceful leaves:
// one departure announcement per room the connection belonged to.
func (p *Presence) Disconnect(sid core.ConnID) {
	for _, roomID := range p.Registry.RoomsOf(sid) {
		p.Leave(sid, roomID)
	}
	p.Registry.Unbind(sid)
}

// Snapshot returns the current members of a room, nil when the room holds
// no live connections.
func (p *Presence) Snapshot(roomID domain.RoomID) []core.MemberDTO {
	room, ok := p.Rooms.Get(roomID)
	if !ok {
		return nil
	}
	return room.MembersSnapshot()
}

func encodeEvent(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Msg("encode event")
		return nil
	}
	return b
}

func logDropped(kind string, roomID domain.RoomID, res core.PublishResult) {
	for _, sid := range res.Dropped {
		log.Warn().Str("module", "app.presence").Str("event", kind).Str("room", string(roomID)).Str("sid", string(sid)).Msg("skipped unreachable member")
	}
}
