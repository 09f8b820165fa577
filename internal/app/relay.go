package app

import (
	"github.com/dkeye/studyroom/internal/core"
	"github.com/rs/zerolog/log"
)

// Relay forwards peer-negotiation envelopes point-to-point. It keeps no
// state beyond the registry lookup and never inspects payloads.
type Relay struct {
	Registry *Registry
}

func NewRelay(reg *Registry) *Relay {
	return &Relay{Registry: reg}
}

// Relay delivers data to the target connection if it is currently live.
// An unreachable target is a normal race (it may have just disconnected):
// the message is dropped without retry and without an error to the sender,
// so the peer's negotiation simply times out client-side.
func (r *Relay) Relay(from, to core.ConnID, data core.Frame) bool {
	sess, ok := r.Registry.Session(to)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("to", string(to)).Msg("target not registered, dropping")
		return false
	}
	if err := sess.Signal().TrySend(data); err != nil {
		log.Debug().Err(err).Str("module", "app.relay").Str("from", string(from)).Str("to", string(to)).Msg("target unreachable, dropping")
		return false
	}
	return true
}
