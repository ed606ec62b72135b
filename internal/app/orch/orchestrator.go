// Package orch wires the matching core together and owns the connection
// lifecycle entry points the transport adapter calls into.
package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/assumechat/server/internal/app"
	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

type Orchestrator struct {
	Registry *app.Registry
	Queue    *app.QueueManager
	Rooms    *app.RoomManager
}

func New(reg *app.Registry, queue *app.QueueManager, rooms *app.RoomManager) *Orchestrator {
	return &Orchestrator{Registry: reg, Queue: queue, Rooms: rooms}
}

// OnConnect registers the fresh connection and pushes it an initial
// queue snapshot so watchers see counts before any join.
func (o *Orchestrator) OnConnect(id domain.ConnID, conn core.SignalConnection) {
	o.Registry.Register(id, conn)
	o.Queue.Rebroadcast()
}

// OnDisconnect reconciles an abrupt connection loss: drop the id from
// the waiting pool, tear down any room it occupies (the remaining member
// gets peerLeft), unregister, then refresh the counts everyone sees.
// Every step is idempotent; running after an explicit leaveQueue or
// leaveRoom already did the work is safe.
func (o *Orchestrator) OnDisconnect(id domain.ConnID) {
	log.Info().Str("module", "app.orch").Str("conn", string(id)).Msg("reconciling disconnect")
	o.Queue.Disconnect(id)
	o.Rooms.DisconnectTeardown(id)
	o.Registry.Unregister(id)
	o.Queue.Rebroadcast()
}
