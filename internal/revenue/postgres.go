package revenue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

const recordColumns = `id, registration_id, public_id, coordinator_id,
	school_name, coordinator_name, amount, student_count, outcome, verified_at`

// Postgres keeps the ledger in the revenue_records table. registration_id
// carries a unique constraint, which is what makes CreateIfAbsent a no-op
// the second time.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateIfAbsent(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revenue_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (registration_id) DO NOTHING`,
		record.ID, record.RegistrationID, record.PublicID, record.CoordinatorID,
		record.SchoolName, record.CoordinatorName, record.Amount,
		record.StudentCount, record.Outcome, record.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revenue record: %w", err)
	}
	return nil
}

func (s *Postgres) DeleteByRegistration(ctx context.Context, registrationID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM revenue_records WHERE registration_id = $1", registrationID)
	if err != nil {
		return fmt.Errorf("delete revenue record: %w", err)
	}
	return nil
}

func scanRecord(row interface{ Scan(dest ...any) error }) (*Record, error) {
	var record Record
	err := row.Scan(
		&record.ID, &record.RegistrationID, &record.PublicID, &record.CoordinatorID,
		&record.SchoolName, &record.CoordinatorName, &record.Amount,
		&record.StudentCount, &record.Outcome, &record.VerifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan revenue record: %w", err)
	}
	return &record, nil
}

func (s *Postgres) FindByRegistration(ctx context.Context, registrationID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM revenue_records WHERE registration_id = $1`,
		registrationID)
	return scanRecord(row)
}

func (s *Postgres) Summarize(ctx context.Context) (*Summary, error) {
	var summary Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*), COALESCE(SUM(student_count), 0)
		FROM revenue_records`).
		Scan(&summary.TotalAmount, &summary.Registrations, &summary.Students)
	if err != nil {
		return nil, fmt.Errorf("summarize revenue: %w", err)
	}
	return &summary, nil
}

func (s *Postgres) Monthly(ctx context.Context, months int) ([]*MonthlyTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(YEAR FROM verified_at)::INT,
		       EXTRACT(MONTH FROM verified_at)::INT,
		       SUM(amount), COUNT(*)
		FROM revenue_records
		GROUP BY 1, 2
		ORDER BY 1 DESC, 2 DESC
		LIMIT $1`, months)
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	defer rows.Close()

	var rollups []*MonthlyTotal
	for rows.Next() {
		var total MonthlyTotal
		if err := rows.Scan(&total.Year, &total.Month, &total.Amount, &total.Registrations); err != nil {
			return nil, fmt.Errorf("scan monthly revenue: %w", err)
		}
		rollups = append(rollups, &total)
	}
	return rollups, rows.Err()
}

func (s *Postgres) Recent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM revenue_records ORDER BY verified_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("recent revenue: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Postgres) List(ctx context.Context, page, limit int) ([]*Record, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM revenue_records").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count revenue records: %w", err)
	}

	if page < 1 {
		page = 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM revenue_records
		 ORDER BY verified_at DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list revenue records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	return records, total, rows.Err()
}
