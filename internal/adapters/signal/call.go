package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/studyroom/internal/core"
	"github.com/rs/zerolog/log"
)

// Negotiation payloads are opaque blobs: the server routes them by target
// connection ID and never looks inside. The from field is stamped
// server-side so a client cannot impersonate another connection.

func (ctl *SignalWSController) handleCallUser(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type callPayload struct {
		Type       string          `json:"type"`
		UserToCall string          `json:"userToCall"`
		SignalData json.RawMessage `json:"signalData"`
		Name       string          `json:"name,omitempty"`
	}
	var p callPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserToCall == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad call payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	out, err := json.Marshal(struct {
		Type   string          `json:"type"`
		Signal json.RawMessage `json:"signal"`
		From   core.ConnID     `json:"from"`
		Name   string          `json:"name,omitempty"`
	}{
		Type:   "call-user",
		Signal: p.SignalData,
		From:   sid,
		Name:   p.Name,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode offer")
		return
	}
	ctl.Relay.Relay(sid, core.ConnID(p.UserToCall), out)
}

func (ctl *SignalWSController) handleAnswerCall(
	_ context.Context,
	sid core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type answerPayload struct {
		Type   string          `json:"type"`
		Signal json.RawMessage `json:"signal"`
		To     string          `json:"to"`
		Name   string          `json:"name,omitempty"`
	}
	var p answerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad answer payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	out, err := json.Marshal(struct {
		Type   string          `json:"type"`
		Signal json.RawMessage `json:"signal"`
		From   core.ConnID     `json:"from"`
		Name   string          `json:"name,omitempty"`
	}{
		Type:   "call-accepted",
		Signal: p.Signal,
		From:   sid,
		Name:   p.Name,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode answer")
		return
	}
	ctl.Relay.Relay(sid, core.ConnID(p.To), out)
}
