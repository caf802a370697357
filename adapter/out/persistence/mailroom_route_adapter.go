package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
)

// RouteAdapter implements out.RouteRepository using PostgreSQL. The
// message_id column carries a unique constraint; InsertIfAbsent leans on it.
type RouteAdapter struct {
	db *sqlx.DB
}

// NewRouteAdapter creates a new route audit adapter.
func NewRouteAdapter(db *sqlx.DB) *RouteAdapter {
	return &RouteAdapter{db: db}
}

// routeRow represents the database row.
type routeRow struct {
	ID          int64           `db:"id"`
	MessageID   string          `db:"message_id"`
	Protocol    string          `db:"protocol"`
	Department  string          `db:"department"`
	Mailbox     string          `db:"mailbox"`
	Category    string          `db:"category"`
	Priority    string          `db:"priority"`
	MatchScore  sql.NullFloat64 `db:"match_score"`
	MatchMethod sql.NullString  `db:"match_method"`
	AutoReplied bool            `db:"auto_replied"`
	CCTriage    bool            `db:"cc_triage"`
	ForwardedAt time.Time       `db:"forwarded_at"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r *routeRow) toDomain() *domain.RouteRecord {
	rec := &domain.RouteRecord{
		ID:          r.ID,
		MessageID:   r.MessageID,
		Protocol:    r.Protocol,
		Department:  domain.Department(r.Department),
		Mailbox:     r.Mailbox,
		Category:    domain.Category(r.Category),
		Priority:    domain.Priority(r.Priority),
		AutoReplied: r.AutoReplied,
		CCTriage:    r.CCTriage,
		ForwardedAt: r.ForwardedAt,
		CreatedAt:   r.CreatedAt,
	}
	if r.MatchScore.Valid {
		rec.MatchScore = r.MatchScore.Float64
	}
	if r.MatchMethod.Valid {
		rec.MatchMethod = domain.MatchMethod(r.MatchMethod.String)
	}
	return rec
}

// ExistsByMessageID reports whether a message was already routed.
func (a *RouteAdapter) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := a.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM route_records WHERE message_id = $1)`, messageID)
	return exists, err
}

// InsertIfAbsent writes the audit row; false means a row already existed.
func (a *RouteAdapter) InsertIfAbsent(ctx context.Context, rec *domain.RouteRecord) (bool, error) {
	query := `
		INSERT INTO route_records (message_id, protocol, department, mailbox, category, priority,
		                           match_score, match_method, auto_replied, cc_triage, forwarded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (message_id) DO NOTHING
	`

	var matchScore sql.NullFloat64
	if rec.MatchScore != 0 {
		matchScore = sql.NullFloat64{Float64: rec.MatchScore, Valid: true}
	}

	result, err := a.db.ExecContext(ctx, query,
		rec.MessageID,
		rec.Protocol,
		string(rec.Department),
		rec.Mailbox,
		string(rec.Category),
		string(rec.Priority),
		matchScore,
		nullString(string(rec.MatchMethod)),
		rec.AutoReplied,
		rec.CCTriage,
		rec.ForwardedAt,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Recent lists the newest route records, optionally filtered by department.
func (a *RouteAdapter) Recent(ctx context.Context, limit int, department domain.Department) ([]*domain.RouteRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []routeRow
	var err error
	if department != "" {
		err = a.db.SelectContext(ctx, &rows,
			`SELECT * FROM route_records WHERE department = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
			string(department), limit)
	} else {
		err = a.db.SelectContext(ctx, &rows,
			`SELECT * FROM route_records ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, err
	}

	records := make([]*domain.RouteRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	return records, nil
}

// CountByDepartment aggregates routed volume since a point in time.
func (a *RouteAdapter) CountByDepartment(ctx context.Context, since time.Time) (map[domain.Department]int64, error) {
	var rows []struct {
		Department string `db:"department"`
		Count      int64  `db:"count"`
	}
	err := a.db.SelectContext(ctx, &rows, `
		SELECT department, COUNT(*) AS count
		FROM route_records
		WHERE created_at >= $1
		GROUP BY department
	`, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Department]int64, len(rows))
	for _, row := range rows {
		counts[domain.Department(row.Department)] = row.Count
	}
	return counts, nil
}

// Ensure interface compliance
var _ out.RouteRepository = (*RouteAdapter)(nil)
