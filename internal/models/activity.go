package models

import "time"

// Admin actions recorded in the activity log.
const (
	ActionCreatedUser    = "CREATED_USER"
	ActionEditedUser     = "EDITED_USER"
	ActionDeactivated    = "DEACTIVATED_USER"
	ActionRestoredUser   = "RESTORED_USER"
	ActionHardDeleted    = "PERMANENTLY_DELETED_USER"
	ActionBannedUser     = "BANNED_USER"
	ActionUnbannedUser   = "UNBANNED_USER"
	ActionDeletedMessage = "DELETED_MESSAGE"
)

// ActivityLog is an append-only record of an admin action.
type ActivityLog struct {
	ID         int64     `db:"id" json:"id"`
	AdminID    int64     `db:"admin_id" json:"admin_id"`
	AdminName  string    `db:"admin_name" json:"admin_name"`
	Action     string    `db:"action" json:"action"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   int64     `db:"target_id" json:"target_id"`
	TargetName string    `db:"target_name" json:"target_name,omitempty"`
	Details    string    `db:"details" json:"details,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}
