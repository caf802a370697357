package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"mailroom_server/core/domain"
	"mailroom_server/core/port/out"
)

// ContractAdapter implements out.ContractRepository using PostgreSQL.
type ContractAdapter struct {
	db *sqlx.DB
}

// NewContractAdapter creates a new contract adapter.
func NewContractAdapter(db *sqlx.DB) *ContractAdapter {
	return &ContractAdapter{db: db}
}

// contractRow represents the database row.
type contractRow struct {
	ID           int64           `db:"id"`
	Number       string          `db:"number"`
	SchoolName   string          `db:"school_name"`
	Status       string          `db:"status"`
	MonthlyValue sql.NullFloat64 `db:"monthly_value"`
	StartDate    sql.NullTime    `db:"start_date"`
	EndDate      sql.NullTime    `db:"end_date"`
	ContactName  sql.NullString  `db:"contact_name"`
	ContactEmail sql.NullString  `db:"contact_email"`
	ContactPhone sql.NullString  `db:"contact_phone"`
	Notes        sql.NullString  `db:"notes"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r *contractRow) toDomain() *domain.Contract {
	c := &domain.Contract{
		ID:         r.ID,
		Number:     r.Number,
		SchoolName: r.SchoolName,
		Status:     domain.ContractStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.MonthlyValue.Valid {
		c.MonthlyValue = r.MonthlyValue.Float64
	}
	if r.StartDate.Valid {
		c.StartDate = &r.StartDate.Time
	}
	if r.EndDate.Valid {
		c.EndDate = &r.EndDate.Time
	}
	if r.ContactName.Valid {
		c.ContactName = r.ContactName.String
	}
	if r.ContactEmail.Valid {
		c.ContactEmail = r.ContactEmail.String
	}
	if r.ContactPhone.Valid {
		c.ContactPhone = r.ContactPhone.String
	}
	if r.Notes.Valid {
		c.Notes = r.Notes.String
	}
	return c
}

// GetByNumber retrieves a contract by its number. Missing is (nil, nil).
func (a *ContractAdapter) GetByNumber(ctx context.Context, number string) (*domain.Contract, error) {
	var row contractRow
	err := a.db.GetContext(ctx, &row, `SELECT * FROM contracts WHERE number = $1`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// ListActive retrieves every active contract for the matcher.
func (a *ContractAdapter) ListActive(ctx context.Context) ([]*domain.Contract, error) {
	var rows []contractRow
	err := a.db.SelectContext(ctx, &rows,
		`SELECT * FROM contracts WHERE status = $1 ORDER BY school_name`, string(domain.ContractActive))
	if err != nil {
		return nil, err
	}
	contracts := make([]*domain.Contract, len(rows))
	for i, row := range rows {
		contracts[i] = row.toDomain()
	}
	return contracts, nil
}

// Upsert inserts or refreshes a contract keyed by number.
func (a *ContractAdapter) Upsert(ctx context.Context, c *domain.Contract) error {
	query := `
		INSERT INTO contracts (number, school_name, status, monthly_value, start_date, end_date,
		                       contact_name, contact_email, contact_phone, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (number) DO UPDATE SET
			school_name = EXCLUDED.school_name,
			status = EXCLUDED.status,
			monthly_value = EXCLUDED.monthly_value,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			contact_name = EXCLUDED.contact_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	var monthlyValue sql.NullFloat64
	if c.MonthlyValue != 0 {
		monthlyValue = sql.NullFloat64{Float64: c.MonthlyValue, Valid: true}
	}
	var startDate, endDate sql.NullTime
	if c.StartDate != nil {
		startDate = sql.NullTime{Time: *c.StartDate, Valid: true}
	}
	if c.EndDate != nil {
		endDate = sql.NullTime{Time: *c.EndDate, Valid: true}
	}

	return a.db.QueryRowContext(ctx, query,
		c.Number,
		c.SchoolName,
		string(c.Status),
		monthlyValue,
		startDate,
		endDate,
		nullString(c.ContactName),
		nullString(c.ContactEmail),
		nullString(c.ContactPhone),
		nullString(c.Notes),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure interface compliance
var _ out.ContractRepository = (*ContractAdapter)(nil)
