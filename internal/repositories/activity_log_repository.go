package repositories

import (
	"context"
	"math"

	"github.com/jmoiron/sqlx"

	"chat-server/internal/models"
)

const activityColumns = `id, admin_id, admin_name, action, target_type, target_id, target_name, details, occurred_at`

// ActivityLogRepository records and lists admin actions. Append-only.
type ActivityLogRepository interface {
	Insert(ctx context.Context, entry models.ActivityLog) (models.ActivityLog, error)
	ListPage(ctx context.Context, search string, page, limit int) ([]models.ActivityLog, int, error)
	Recent(ctx context.Context, n int) ([]models.ActivityLog, error)
}

// ActivityLogRepo is a sqlx implementation of ActivityLogRepository.
type ActivityLogRepo struct {
	db *sqlx.DB
}

// NewActivityLogRepo constructs an ActivityLogRepo.
func NewActivityLogRepo(db *sqlx.DB) *ActivityLogRepo {
	return &ActivityLogRepo{db: db}
}

// Insert appends an activity record.
func (r *ActivityLogRepo) Insert(ctx context.Context, entry models.ActivityLog) (models.ActivityLog, error) {
	var created models.ActivityLog
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO activity_logs (admin_id, admin_name, action, target_type, target_id, target_name, details)
         VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+activityColumns,
		entry.AdminID, entry.AdminName, entry.Action, entry.TargetType, entry.TargetID,
		entry.TargetName, entry.Details)
	return created, err
}

// ListPage returns activity records newest-first with the total page
// count. Search matches admin name, action, or target name.
func (r *ActivityLogRepo) ListPage(ctx context.Context, search string, page, limit int) ([]models.ActivityLog, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 15
	}

	where := `WHERE ($1 = '' OR admin_name ILIKE '%' || $1 || '%' OR action ILIKE '%' || $1 || '%'
        OR target_name ILIKE '%' || $1 || '%')`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM activity_logs `+where, search); err != nil {
		return nil, 0, err
	}

	var logs []models.ActivityLog
	err := r.db.SelectContext(ctx, &logs,
		`SELECT `+activityColumns+` FROM activity_logs `+where+` ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`,
		search, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return logs, int(math.Ceil(float64(total) / float64(limit))), nil
}

// Recent returns the n newest activity records.
func (r *ActivityLogRepo) Recent(ctx context.Context, n int) ([]models.ActivityLog, error) {
	if n < 1 {
		n = 5
	}
	var logs []models.ActivityLog
	err := r.db.SelectContext(ctx, &logs,
		`SELECT `+activityColumns+` FROM activity_logs ORDER BY occurred_at DESC LIMIT $1`, n)
	return logs, err
}
