package signal

import (
	"context"

	"github.com/dkeye/studyroom/internal/core"
)

func (ctl *SignalWSController) handlePing(
	_ context.Context,
	_ core.ConnID,
	conn core.SignalConnection,
	_ []byte,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
