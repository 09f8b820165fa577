// Package repository implements the room lifecycle store on sqlite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dkeye/studyroom/internal/app"
	"github.com/dkeye/studyroom/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	password_hash    TEXT NOT NULL DEFAULT '',
	created_by       TEXT NOT NULL,
	timer_duration   INTEGER NOT NULL DEFAULT 0,
	timer_start_time TIMESTAMP,
	created_at       TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS room_participants (
	room_id   TEXT NOT NULL,
	user_id   TEXT NOT NULL,
	joined_at TIMESTAMP NOT NULL,
	PRIMARY KEY (room_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_rooms_created_at ON rooms (created_at);
`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (app.RoomStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Open is a convenience for cmd wiring: open the sqlite file and migrate.
func Open(path string) (*sql.DB, app.RoomStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	store, err := NewRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func (r *Repository) CreateRoom(ctx context.Context, room *domain.Room) error {
	query := `INSERT INTO rooms (id, name, password_hash, created_by, timer_duration, timer_start_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	var start sql.NullTime
	if !room.Settings.StartTime.IsZero() {
		start = sql.NullTime{Time: room.Settings.StartTime, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query,
		string(room.ID), string(room.Name), room.PasswordHash, room.CreatedBy,
		room.Settings.Duration, start, room.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert room '%s': %w", room.ID, err)
	}
	if room.CreatedBy != "" {
		return r.AddParticipant(ctx, room.ID, room.CreatedBy)
	}
	return nil
}

func (r *Repository) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	query := `SELECT id, name, password_hash, created_by, timer_duration, timer_start_time, created_at
		FROM rooms WHERE id = ?`
	var room domain.Room
	var start sql.NullTime
	err := r.db.QueryRowContext(ctx, query, string(id)).Scan(
		&room.ID, &room.Name, &room.PasswordHash, &room.CreatedBy,
		&room.Settings.Duration, &start, &room.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying room '%s': %w", id, err)
	}
	if start.Valid {
		room.Settings.StartTime = start.Time
	}
	participants, err := r.participants(ctx, id)
	if err != nil {
		return nil, err
	}
	room.Participants = participants
	return &room, nil
}

func (r *Repository) AddParticipant(ctx context.Context, id domain.RoomID, userID string) error {
	query := `INSERT OR IGNORE INTO room_participants (room_id, user_id, joined_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, string(id), userID, time.Now()); err != nil {
		return fmt.Errorf("failed to add participant to '%s': %w", id, err)
	}
	return nil
}

func (r *Repository) ListRooms(ctx context.Context, limit int) ([]*domain.Room, error) {
	query := `SELECT id, name, password_hash, created_by, timer_duration, timer_start_time, created_at
		FROM rooms ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var out []*domain.Room
	for rows.Next() {
		var room domain.Room
		var start sql.NullTime
		if err := rows.Scan(
			&room.ID, &room.Name, &room.PasswordHash, &room.CreatedBy,
			&room.Settings.Duration, &start, &room.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		if start.Valid {
			room.Settings.StartTime = start.Time
		}
		out = append(out, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rooms: %w", err)
	}
	return out, nil
}

func (r *Repository) participants(ctx context.Context, id domain.RoomID) ([]string, error) {
	query := `SELECT user_id FROM room_participants WHERE room_id = ? ORDER BY joined_at`
	rows, err := r.db.QueryContext(ctx, query, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for '%s': %w", id, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over participants for '%s': %w", id, err)
	}
	return out, nil
}
