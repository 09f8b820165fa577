package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/studyroom/internal/core"
	"github.com/dkeye/studyroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleToggleMedia records the claimed media state on the session (so join
// snapshots can carry it) and announces it to the rest of the room. The
// claim is informational; the server cannot observe real track state.
func (ctl *SignalWSController) handleToggleMedia(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type togglePayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
		Kind   string `json:"mediaType"`
		Status bool   `json:"status"`
	}
	var p togglePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad toggle payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	room, ok := ctl.roomFor(sid, conn, p.RoomID)
	if !ok {
		return
	}

	sess, ok := ctl.Presence.Registry.Session(sid)
	if !ok {
		return
	}
	if !sess.SetMedia(domain.MediaKind(p.Kind), p.Status) {
		log.Warn().Str("module", "signal").Str("kind", p.Kind).Msg("unknown media kind")
		ctl.sendError(conn, "bad_payload")
		return
	}

	out, err := json.Marshal(struct {
		Type   string      `json:"type"`
		RoomID string      `json:"roomId"`
		PeerID core.ConnID `json:"peerID"`
		Kind   string      `json:"mediaType"`
		Status bool        `json:"status"`
	}{
		Type:   "media-toggled",
		RoomID: p.RoomID,
		PeerID: sid,
		Kind:   p.Kind,
		Status: p.Status,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode toggle")
		return
	}
	room.Broadcast(sid, out)
}
