package app

import (
	"context"
	"sync"

	"github.com/dkeye/studyroom/internal/core"
	"github.com/dkeye/studyroom/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Session core.MemberSession
	Cancel  context.CancelFunc
	Rooms   map[domain.RoomID]struct{}
}

// Registry is pure connection bookkeeping: which transient connection IDs
// are live and which rooms each one has joined. No business logic, no I/O.
type Registry struct {
	mu      sync.RWMutex
	entries map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[core.ConnID]*connEntry)}
}

// Bind assigns a fresh process-unique connection ID for one transport
// session. IDs never collide during overlapping lifetimes.
func (r *Registry) Bind(sess core.MemberSession, cancel context.CancelFunc) core.ConnID {
	sid := core.ConnID(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sid] = &connEntry{
		Session: sess,
		Cancel:  cancel,
		Rooms:   make(map[domain.RoomID]struct{}),
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound connection")
	return sid
}

func (r *Registry) Unbind(sid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound connection")
}

func (r *Registry) Session(sid core.ConnID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) AddRoom(sid core.ConnID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sid]
	if !ok {
		return false
	}
	e.Rooms[roomID] = struct{}{}
	return true
}

func (r *Registry) RemoveRoom(sid core.ConnID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sid]; ok {
		delete(e.Rooms, roomID)
	}
}

// RoomsOf returns the rooms the connection has joined. A connection may be
// in several rooms at once, though clients typically use one at a time.
func (r *Registry) RoomsOf(sid core.ConnID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(e.Rooms))
	for id := range e.Rooms {
		out = append(out, id)
	}
	return out
}

func (r *Registry) Cancel(sid core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.entries[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled connection")
	return true
}

// CancelAll cancels every live connection. Hijacked WS connections outlive
// http.Server.Shutdown, so the shutdown path stops their pumps here instead
// of waiting out read deadlines.
func (r *Registry) CancelAll() {
	r.mu.RLock()
	sids := make([]core.ConnID, 0, len(r.entries))
	for sid := range r.entries {
		sids = append(sids, sid)
	}
	r.mu.RUnlock()
	for _, sid := range sids {
		r.Cancel(sid)
	}
}
