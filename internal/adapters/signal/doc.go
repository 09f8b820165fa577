package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/studyroom/internal/core"
	"github.com/rs/zerolog/log"
)

// handleSendChanges relays collaborative editor deltas to the rest of the
// room. Deltas are opaque, same as whiteboard strokes.
func (ctl *SignalWSController) handleSendChanges(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type changesPayload struct {
		Type   string          `json:"type"`
		RoomID string          `json:"roomId"`
		Delta  json.RawMessage `json:"delta"`
	}
	var p changesPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad changes payload")
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
		Delta  json.RawMessage `json:"delta"`
	}{
		Type:   "receive-changes",
		RoomID: p.RoomID,
		Delta:  p.Delta,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode changes")
		return
	}
	room.Broadcast(sid, out)
}
