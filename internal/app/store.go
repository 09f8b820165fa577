package app

import (
	"context"

	"github.com/dkeye/studyroom/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// RoomStore is the durable room-metadata boundary. The signaling core only
// reads it at join time (existence and password checks) and never caches
// results; live membership stays with Presence regardless of whatever
// participant history the store keeps.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	// GetRoom returns domain.ErrRoomNotFound for unknown IDs.
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	AddParticipant(ctx context.Context, id domain.RoomID, userID string) error
	ListRooms(ctx context.Context, limit int) ([]*domain.Room, error)
}

// CheckRoomPassword verifies a join attempt against the stored hash and
// returns domain.ErrWrongPassword on mismatch. Rooms without a password
// accept any attempt.
func CheckRoomPassword(room *domain.Room, password string) error {
	if !room.HasPassword() {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)) != nil {
		return domain.ErrWrongPassword
	}
	return nil
}
