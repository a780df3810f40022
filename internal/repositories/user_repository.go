package repositories

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-server/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, full_name, email, password_hash, avatar_url, is_admin, last_seen,
    created_at, created_by, deleted_at, deleted_by, is_banned, ban_reason, banned_at,
    ban_expires_at, banned_by`

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, userID int64) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	ListOthers(ctx context.Context, userID int64) ([]models.User, error)
	MissingIDs(ctx context.Context, ids []int64) ([]int64, error)
	Save(ctx context.Context, user models.User) error
	UpdateLastSeen(ctx context.Context, userID int64, at time.Time) error
	SoftDelete(ctx context.Context, userID, adminID int64) error
	Restore(ctx context.Context, userID int64) error
	HardDelete(ctx context.Context, userID int64) error
	Ban(ctx context.Context, userID int64, reason string, expiresAt *time.Time, adminID int64) error
	Unban(ctx context.Context, userID int64) error
	ListActivePage(ctx context.Context, page, limit int) ([]models.User, int, error)
	ListBanned(ctx context.Context) ([]models.User, error)
	ListDeleted(ctx context.Context) ([]models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	DeleteSoftDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create stores a new user.
func (r *UserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	query := `INSERT INTO users (full_name, email, password_hash, avatar_url, is_admin, created_by)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + userColumns
	var created models.User
	err := r.db.GetContext(ctx, &created, query,
		user.FullName, user.Email, user.PasswordHash, user.AvatarURL, user.IsAdmin, user.CreatedBy)
	return created, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListOthers returns every active user except the given one, sorted by name.
func (r *UserRepo) ListOthers(ctx context.Context, userID int64) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE id<>$1 AND deleted_at IS NULL ORDER BY full_name ASC`, userID)
	return users, err
}

// MissingIDs returns the subset of ids that do not resolve to a user.
func (r *UserRepo) MissingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found pq.Int64Array
	err := r.db.GetContext(ctx, &found,
		`SELECT COALESCE(ARRAY_AGG(id), '{}') FROM users WHERE id = ANY($1)`, pq.Int64Array(ids))
	if err != nil {
		return nil, err
	}
	foundSet := make(map[int64]struct{}, len(found))
	for _, id := range found {
		foundSet[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Save updates the user's mutable profile fields.
func (r *UserRepo) Save(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name=$2, email=$3, password_hash=$4, avatar_url=$5, is_admin=$6 WHERE id=$1`,
		user.ID, user.FullName, user.Email, user.PasswordHash, user.AvatarURL, user.IsAdmin)
	return err
}

// UpdateLastSeen stamps the user's durable last-seen time.
func (r *UserRepo) UpdateLastSeen(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen=$2 WHERE id=$1`, userID, at)
	return err
}

// SoftDelete marks the user deleted, reversibly.
func (r *UserRepo) SoftDelete(ctx context.Context, userID, adminID int64) error {
	return r.requireRow(r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at=NOW(), deleted_by=$2 WHERE id=$1`, userID, adminID))
}

// Restore clears the soft-deletion marker.
func (r *UserRepo) Restore(ctx context.Context, userID int64) error {
	return r.requireRow(r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at=NULL, deleted_by=NULL WHERE id=$1`, userID))
}

// HardDelete removes the user row. Messages and conversation memberships
// are not cascaded.
func (r *UserRepo) HardDelete(ctx context.Context, userID int64) error {
	return r.requireRow(r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID))
}

// Ban applies a time-boxed or permanent ban overlay.
func (r *UserRepo) Ban(ctx context.Context, userID int64, reason string, expiresAt *time.Time, adminID int64) error {
	return r.requireRow(r.db.ExecContext(ctx,
		`UPDATE users SET is_banned=TRUE, ban_reason=$2, banned_at=NOW(), ban_expires_at=$3, banned_by=$4 WHERE id=$1`,
		userID, reason, expiresAt, adminID))
}

// Unban clears the ban overlay.
func (r *UserRepo) Unban(ctx context.Context, userID int64) error {
	return r.requireRow(r.db.ExecContext(ctx,
		`UPDATE users SET is_banned=FALSE, ban_reason='', banned_at=NULL, ban_expires_at=NULL, banned_by=NULL WHERE id=$1`,
		userID))
}

// ListActivePage returns non-deleted, non-banned users newest-first with
// the total page count.
func (r *UserRepo) ListActivePage(ctx context.Context, page, limit int) ([]models.User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND is_banned=FALSE`); err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL AND is_banned=FALSE
         ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return users, int(math.Ceil(float64(total) / float64(limit))), nil
}

// ListBanned returns banned users.
func (r *UserRepo) ListBanned(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE is_banned=TRUE ORDER BY banned_at DESC`)
	return users, err
}

// ListDeleted returns soft-deleted users.
func (r *UserRepo) ListDeleted(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC`)
	return users, err
}

// ListAll returns every user, newest-first, for export.
func (r *UserRepo) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	return users, err
}

// DeleteSoftDeletedBefore hard-deletes users whose soft deletion is older
// than the cutoff and reports how many were removed.
func (r *UserRepo) DeleteSoftDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE deleted_at IS NOT NULL AND deleted_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *UserRepo) requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
