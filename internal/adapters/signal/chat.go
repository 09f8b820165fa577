package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/studyroom/internal/core"
	"github.com/rs/zerolog/log"
)

// handleSendMessage fans a chat message out to everyone in the room except
// the sender, who already echoed it locally.
func (ctl *SignalWSController) handleSendMessage(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type chatPayload struct {
		Type    string `json:"type"`
		RoomID  string `json:"roomId"`
		Message string `json:"message"`
		Sender  string `json:"sender,omitempty"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	room, ok := ctl.roomFor(sid, conn, p.RoomID)
	if !ok {
		return
	}

	out, err := json.Marshal(struct {
		Type    string `json:"type"`
		RoomID  string `json:"roomId"`
		Message string `json:"message"`
		Sender  string `json:"sender,omitempty"`
	}{
		Type:    "receive-message",
		RoomID:  p.RoomID,
		Message: p.Message,
		Sender:  p.Sender,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode chat")
		return
	}
	room.Broadcast(sid, out)
}
