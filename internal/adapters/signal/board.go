package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/studyroom/internal/core"
	"github.com/rs/zerolog/log"
)

// Whiteboard events carry opaque stroke data; the server only fans them out.
// The drawer applied the operation locally already, so it is excluded.

func (ctl *SignalWSController) handleWhiteboardDraw(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type drawPayload struct {
		Type   string          `json:"type"`
		RoomID string          `json:"roomId"`
		Path   json.RawMessage `json:"path"`
	}
	var p drawPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad draw payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	room, ok := ctl.roomFor(sid, conn, p.RoomID)
	if !ok {
		return
	}

	out, err := json.Marshal(struct {
		Type   string          `json:"type"`
		RoomID string          `json:"roomId"`
		Path   json.RawMessage `json:"path"`
	}{
		Type:   "whiteboard-draw",
		RoomID: p.RoomID,
		Path:   p.Path,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode draw")
		return
	}
	room.Broadcast(sid, out)
}

func (ctl *SignalWSController) handleWhiteboardClear(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type clearPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	var p clearPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad clear payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	room, ok := ctl.roomFor(sid, conn, p.RoomID)
	if !ok {
		return
	}

	out, err := json.Marshal(struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}{
		Type:   "whiteboard-clear",
		RoomID: p.RoomID,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode clear")
		return
	}
	room.Broadcast(sid, out)
}
