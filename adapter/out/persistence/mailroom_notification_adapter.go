package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
)

// NotificationAdapter implements out.NotificationRepository using PostgreSQL.
type NotificationAdapter struct {
	db *sqlx.DB
}

// NewNotificationAdapter creates a new notification adapter.
func NewNotificationAdapter(db *sqlx.DB) *NotificationAdapter {
	return &NotificationAdapter{db: db}
}

// notificationRow represents the database row.
type notificationRow struct {
	ID         int64          `db:"id"`
	Level      string         `db:"level"`
	Title      string         `db:"title"`
	Body       sql.NullString `db:"body"`
	MessageID  sql.NullString `db:"message_id"`
	Department sql.NullString `db:"department"`
	Stage      sql.NullString `db:"stage"`
	Channels   pq.StringArray `db:"channels"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r *notificationRow) toDomain() *domain.Notification {
	n := &domain.Notification{
		ID:        r.ID,
		Level:     domain.NotificationLevel(r.Level),
		Title:     r.Title,
		Channels:  []string(r.Channels),
		CreatedAt: r.CreatedAt,
	}
	if r.Body.Valid {
		n.Body = r.Body.String
	}
	if r.MessageID.Valid {
		n.MessageID = r.MessageID.String
	}
	if r.Department.Valid {
		n.Department = domain.Department(r.Department.String)
	}
	if r.Stage.Valid {
		n.Stage = domain.Stage(r.Stage.String)
	}
	return n
}

// Append inserts a notification and fills in its ID and timestamp.
func (a *NotificationAdapter) Append(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (level, title, body, message_id, department, stage, channels, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`
	return a.db.QueryRowContext(ctx, query,
		string(n.Level),
		n.Title,
		nullString(n.Body),
		nullString(n.MessageID),
		nullString(string(n.Department)),
		nullString(string(n.Stage)),
		pq.StringArray(n.Channels),
	).Scan(&n.ID, &n.CreatedAt)
}

// TrimTo deletes everything beyond the newest max entries.
func (a *NotificationAdapter) TrimTo(ctx context.Context, max int) (int64, error) {
	result, err := a.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE id NOT IN (SELECT id FROM notifications ORDER BY created_at DESC, id DESC LIMIT $1)
	`, max)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Recent lists the newest notifications first.
func (a *NotificationAdapter) Recent(ctx context.Context, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []notificationRow
	err := a.db.SelectContext(ctx, &rows,
		`SELECT * FROM notifications ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	notifications := make([]*domain.Notification, len(rows))
	for i, row := range rows {
		notifications[i] = row.toDomain()
	}
	return notifications, nil
}

// Ensure interface compliance
var _ out.NotificationRepository = (*NotificationAdapter)(nil)
