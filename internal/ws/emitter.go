package ws

import (
	"chat-server/internal/presence"
	"chat-server/internal/services"
)

// Emitter executes service effects against the hub and the presence
// registry.
type Emitter struct {
	hub      *Hub
	presence *presence.Registry
}

// NewEmitter constructs an Emitter.
func NewEmitter(hub *Hub, registry *presence.Registry) *Emitter {
	return &Emitter{hub: hub, presence: registry}
}

// Emit fans out each effect: conversation effects go to the room,
// user effects go to the user's active session if any.
func (e *Emitter) Emit(effects []services.Effect) {
	for _, effect := range effects {
		switch {
		case effect.ConversationID != 0:
			e.hub.BroadcastExcept(effect.ConversationID, effect.ExcludeUserID, effect.Event)
		case effect.UserID != 0:
			if connID, ok := e.presence.SessionFor(effect.UserID); ok {
				e.hub.SendToConn(connID, effect.Event)
			}
		}
	}
}
