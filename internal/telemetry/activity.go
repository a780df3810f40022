// Package telemetry records administrator actions: a durable activity
// log row plus a best-effort audit event on the broker.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"time"

	"chat-server/internal/models"
	"chat-server/internal/observability"
	"chat-server/internal/repositories"
)

// AuditPayload is the payload of one recorded action on the broker,
// carried inside the service's shared event envelope.
type AuditPayload struct {
	SchemaVersion int    `json:"schema_version"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	AdminID       int64  `json:"admin_id"`
	Action        string `json:"action"`
	TargetType    string `json:"target_type"`
	TargetID      int64  `json:"target_id"`
	TargetName    string `json:"target_name,omitempty"`
	Details       string `json:"details,omitempty"`
}

// ActivityRecorder persists admin actions. Recording failures are
// logged and never propagated to the caller; the admin operation
// itself has already succeeded.
type ActivityRecorder struct {
	logs        repositories.ActivityLogRepository
	routingKey  string
	service     string
	environment string
}

// NewActivityRecorder constructs an ActivityRecorder.
func NewActivityRecorder(logs repositories.ActivityLogRepository, routingKey, service, environment string) *ActivityRecorder {
	return &ActivityRecorder{logs: logs, routingKey: routingKey, service: service, environment: environment}
}

// Record stores the activity row and emits the audit event.
func (r *ActivityRecorder) Record(ctx context.Context, entry models.ActivityLog, requestID string) {
	if r == nil {
		return
	}
	if _, err := r.logs.Insert(ctx, entry); err != nil {
		log.Printf("activity log insert failed: action=%s target=%s/%d: %v",
			entry.Action, entry.TargetType, entry.TargetID, err)
	}

	envelope := observability.Envelope{
		EventType: "audit_log",
		EventName: entry.Action,
		Payload: AuditPayload{
			SchemaVersion: 1,
			OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
			Service:       r.service,
			Environment:   r.environment,
			AdminID:       entry.AdminID,
			Action:        entry.Action,
			TargetType:    entry.TargetType,
			TargetID:      entry.TargetID,
			TargetName:    entry.TargetName,
			Details:       entry.Details,
		},
		RequestID: requestID,
		TraceID:   observability.TraceIDFromContext(ctx),
	}
	if err := observability.Publish(ctx, r.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
	log.Printf("activity: admin=%d action=%s target=%s/%d %s",
		entry.AdminID, entry.Action, entry.TargetType, entry.TargetID, fmt.Sprintf("%q", entry.Details))
}
