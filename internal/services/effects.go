package services

import "chat-server/internal/models"

// Effect is a fan-out instruction produced by a service operation. The
// websocket emitter executes effects after the operation commits, so
// engines never touch sockets directly.
//
// Exactly one of ConversationID or UserID is set: ConversationID
// broadcasts to the conversation's room (minus ExcludeUserID when
// non-zero), UserID targets that user's active session.
type Effect struct {
	ConversationID int64
	UserID         int64
	ExcludeUserID  int64
	Event          models.Event
}

func broadcast(conversationID int64, event models.Event) Effect {
	return Effect{ConversationID: conversationID, Event: event}
}

func broadcastExcept(conversationID, excludeUserID int64, event models.Event) Effect {
	return Effect{ConversationID: conversationID, ExcludeUserID: excludeUserID, Event: event}
}

func notify(userID int64, event models.Event) Effect {
	return Effect{UserID: userID, Event: event}
}
