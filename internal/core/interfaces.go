package core

import "github.com/dkeye/studyroom/internal/domain"

// Frame is a raw JSON payload ready for the wire.
type Frame []byte

// ConnID identifies one live duplex transport session (one browser tab).
// Assigned at upgrade time, never reused while the session lives.
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds participation meta and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Name() string
	SetName(string)
	Signal() SignalConnection

	// SetMedia records the media state the client claims for itself.
	SetMedia(kind domain.MediaKind, enabled bool) bool
	Media() domain.MediaState
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []ConnID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID    ConnID            `json:"connectionId"`
	Name  string            `json:"name"`
	Media domain.MediaState `json:"media"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Has(ConnID) bool

	// AddMember reports whether membership actually grew, so callers can
	// keep join idempotent without double-announcing.
	AddMember(sid ConnID, ms MemberSession) bool
	RemoveMember(sid ConnID) bool
	Broadcast(from ConnID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
}

type RoomFactory interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
	StopRoom(id domain.RoomID)
}
