package ws

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

var validate = validator.New()

// handleEvent demultiplexes one inbound frame by envelope type. Queue
// events serialize on the queue lock, chat events on the room lock;
// handlers are short and never block. Invalid payloads are absorbed
// silently; only unparsable JSON gets an error frame back.
func (ctl *Controller) handleEvent(id domain.ConnID, c *WsConn, data core.Frame) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("conn", string(id)).Msg("bad json")
		ctl.sendJSON(c, core.ErrorEvent{Type: core.EvtError, Error: "bad_payload"})
		return
	}

	switch env.Type {
	case core.EvtJoinQueue:
		ctl.Orch.Queue.Join(id)
	case core.EvtLeaveQueue:
		ctl.Orch.Queue.Leave(id)
	case core.EvtJoinRoom:
		ctl.handleJoinRoom(id, c, data)
	case core.EvtHandshake:
		ctl.handleHandshake(id, data)
	case core.EvtMessage:
		ctl.handleMessage(id, data)
	case core.EvtTyping:
		ctl.handleTyping(id, data)
	case core.EvtLeaveRoom:
		ctl.handleLeaveRoom(id, data)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event")
	}
}

// decode parses and validates an inbound payload. A failure is logged
// and the event dropped; the protocol has no rejection responses.
func decode(id domain.ConnID, data core.Frame, p any) bool {
	if err := json.Unmarshal(data, p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(id)).Msg("bad payload")
		return false
	}
	if err := validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(id)).Msg("invalid payload")
		return false
	}
	return true
}

func (ctl *Controller) handleJoinRoom(id domain.ConnID, c *WsConn, data core.Frame) {
	var p struct {
		RoomID string `json:"roomId" validate:"required"`
	}
	if !decode(id, data, &p) {
		return
	}
	ctl.Orch.Rooms.Subscribe(id, domain.RoomID(p.RoomID), c)
}

func (ctl *Controller) handleHandshake(id domain.ConnID, data core.Frame) {
	var p struct {
		RoomID   string `json:"roomId" validate:"required"`
		UserID   string `json:"userId" validate:"required"`
		UserName string `json:"userName"`
	}
	if !decode(id, data, &p) {
		return
	}
	ctl.Orch.Rooms.Handshake(domain.RoomID(p.RoomID), id, p.UserID, p.UserName)
}

func (ctl *Controller) handleMessage(id domain.ConnID, data core.Frame) {
	var p struct {
		RoomID  string `json:"roomId" validate:"required"`
		Content string `json:"content" validate:"required"`
		PeerID  string `json:"peerId"`
	}
	if !decode(id, data, &p) {
		return
	}
	ctl.Orch.Rooms.Message(domain.RoomID(p.RoomID), id, p.PeerID, p.Content)
}

func (ctl *Controller) handleTyping(id domain.ConnID, data core.Frame) {
	var p struct {
		RoomID string `json:"roomId" validate:"required"`
		PeerID string `json:"peerId"`
	}
	if !decode(id, data, &p) {
		return
	}
	ctl.Orch.Rooms.Typing(domain.RoomID(p.RoomID), id, p.PeerID)
}

func (ctl *Controller) handleLeaveRoom(id domain.ConnID, data core.Frame) {
	var p struct {
		RoomID string `json:"roomId" validate:"required"`
	}
	if !decode(id, data, &p) {
		return
	}
	ctl.Orch.Rooms.Leave(id, domain.RoomID(p.RoomID))
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
