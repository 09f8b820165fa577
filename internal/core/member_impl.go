package core

import (
	"sync"

	"github.com/dkeye/studyroom/internal/domain"
)

// memberSession implements MemberSession by pairing meta + transport.
// Meta is mutated from handler goroutines, so access goes through mu.
type memberSession struct {
	mu   sync.RWMutex
	meta *domain.Member
	conn SignalConnection
}

func NewMemberSession(name string, conn SignalConnection) MemberSession {
	return &memberSession{meta: domain.NewMember(name), conn: conn}
}

func (m *memberSession) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta.Name
}

func (m *memberSession) SetName(name string) {
	if name == "" {
		return
	}
	if len(name) > domain.MaxMemberNameLen {
		name = name[:domain.MaxMemberNameLen]
	}
	m.mu.Lock()
	m.meta.Name = name
	m.mu.Unlock()
}

func (m *memberSession) Signal() SignalConnection { return m.conn }

func (m *memberSession) SetMedia(kind domain.MediaKind, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta.Media.Set(kind, enabled)
}

func (m *memberSession) Media() domain.MediaState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta.Media
}
