package models

import "time"

// User is an account that can authenticate and participate in conversations.
type User struct {
	ID           int64      `db:"id" json:"id"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	AvatarURL    string     `db:"avatar_url" json:"avatar_url,omitempty"`
	IsAdmin      bool       `db:"is_admin" json:"is_admin"`
	LastSeen     time.Time  `db:"last_seen" json:"last_seen"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	CreatedBy    *int64     `db:"created_by" json:"created_by,omitempty"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy    *int64     `db:"deleted_by" json:"deleted_by,omitempty"`
	IsBanned     bool       `db:"is_banned" json:"is_banned"`
	BanReason    string     `db:"ban_reason" json:"ban_reason,omitempty"`
	BannedAt     *time.Time `db:"banned_at" json:"banned_at,omitempty"`
	BanExpiresAt *time.Time `db:"ban_expires_at" json:"ban_expires_at,omitempty"`
	BannedBy     *int64     `db:"banned_by" json:"banned_by,omitempty"`
}

// BanActive reports whether the user's ban is currently in force.
// A ban with no expiry is permanent.
func (u User) BanActive(now time.Time) bool {
	if !u.IsBanned {
		return false
	}
	if u.BanExpiresAt == nil {
		return true
	}
	return now.Before(*u.BanExpiresAt)
}
