// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxRoomNameLen = 64

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrWrongPassword   = errors.New("wrong room password")
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type (
	RoomID   string
	RoomName string
)

// TimerSettings drive the shared study countdown. The countdown itself
// runs client-side from these two values.
type TimerSettings struct {
	Duration  int       `json:"timerDuration,omitempty"`
	StartTime time.Time `json:"timerStartTime,omitzero"`
}

// Room is the durable metadata record kept by the lifecycle store.
// Live membership is tracked by the presence layer and may diverge from
// Participants, which is a historical record only.
type Room struct {
	ID           RoomID
	Name         RoomName
	PasswordHash string
	CreatedBy    string
	Settings     TimerSettings
	CreatedAt    time.Time
	Participants []string
}

// NewRoom avoids raw literals in adapters and keeps construction obvious.
func NewRoom(name RoomName, createdBy string) (*Room, error) {
	if len(name) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	return &Room{
		ID:        RoomID(uuid.NewString()),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}, nil
}

func (r *Room) HasPassword() bool { return r.PasswordHash != "" }
