package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/assumechat/server/internal/core"
)

// emit marshals and sends best-effort. A slow receiver never blocks the
// caller; a full buffer just drops the frame.
func emit(conn core.SignalConnection, v any) {
	if conn == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("emit marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Debug().Err(err).Str("module", "app").Msg("emit dropped")
	}
}
