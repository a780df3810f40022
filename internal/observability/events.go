package observability

// Routing keys on the chat events exchange.
const (
	RouteSessions = "ws_events.sessions"
	RouteAudit    = "audit.admin"
)

// Envelope is the body shape shared by every event this service
// publishes. RequestID and TraceID travel as AMQP headers rather than
// in the body.
type Envelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`

	RequestID string `json:"-"`
	TraceID   string `json:"-"`
}
