package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/studyroom/internal/app"
	"github.com/dkeye/studyroom/internal/core"
	"github.com/dkeye/studyroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleJoinRoom validates the room against the lifecycle store (the only
// I/O on this path, done before any membership mutation) and then hands the
// connection to Presence. Rejections distinguish a missing room from a bad
// password so the client can prompt instead of erroring out.
func (ctl *SignalWSController) handleJoinRoom(
	ctx context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type joinPayload struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		Password string `json:"password,omitempty"`
		Name     string `json:"name,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	if !ctl.limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join rate limited")
		ctl.sendError(conn, "too_many_attempts")
		return
	}

	roomID := domain.RoomID(p.RoomID)
	room, err := ctl.Store.GetRoom(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		log.Warn().Str("module", "signal").Str("room", p.RoomID).Msg("room not found")
		ctl.sendError(conn, "room_not_found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", p.RoomID).Msg("store lookup failed")
		ctl.sendError(conn, "internal_error")
		return
	}
	if errors.Is(app.CheckRoomPassword(room, p.Password), domain.ErrWrongPassword) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("invalid room password")
		ctl.sendError(conn, "invalid_password")
		return
	}

	if p.Name != "" {
		if sess, ok := ctl.Presence.Registry.Session(sid); ok {
			sess.SetName(p.Name)
		}
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("join")
	ctl.Presence.Join(sid, roomID)

	resp := struct {
		Type     string               `json:"type"`
		Room     domain.RoomID        `json:"roomId"`
		RoomName domain.RoomName      `json:"roomName"`
		Settings domain.TimerSettings `json:"settings"`
		Members  []core.MemberDTO     `json:"members"`
	}{
		Type:     "room-joined",
		Room:     roomID,
		RoomName: room.Name,
		Settings: room.Settings,
		Members:  ctl.Presence.Snapshot(roomID),
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleLeaveRoom(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type leavePayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("leave")
	ctl.Presence.Leave(sid, domain.RoomID(p.RoomID))
	ctl.sendJSON(conn, map[string]any{
		"type":   "room-left",
		"roomId": p.RoomID,
	})
}

// roomFor resolves the live room for a room-scoped event and checks the
// sender actually joined it. No connection can broadcast into a room it is
// not a member of.
func (ctl *SignalWSController) roomFor(sid core.ConnID, conn core.SignalConnection, roomID string) (core.RoomService, bool) {
	room, ok := ctl.Rooms.Get(domain.RoomID(roomID))
	if !ok || !room.Has(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("room", roomID).Msg("event from non-member")
		ctl.sendError(conn, "not_in_room")
		return nil, false
	}
	return room, true
}
