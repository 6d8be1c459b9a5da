package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

const uniqueViolation = "unique_violation"

const registrationColumns = `id, public_id, coordinator_id, student_ids, total_amount,
	payment_status, approval_status, utr, payment_date, created_at, updated_at`

// PostgresRegistrations persists registrations in the registrations table.
// Execute locks the row with SELECT ... FOR UPDATE so concurrent mutations
// of one registration serialize at the database.
type PostgresRegistrations struct {
	db *sql.DB
}

func NewPostgresRegistrations(db *sql.DB) *PostgresRegistrations {
	return &PostgresRegistrations{db: db}
}

func (s *PostgresRegistrations) Create(ctx context.Context, registration *models.Registration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		registration.ID, registration.PublicID, registration.CoordinatorID,
		pq.Array(registration.StudentIDs), registration.TotalAmount,
		registration.PaymentStatus, registration.Approval,
		nullString(registration.UTR), nullTime(registration.PaymentDate),
		registration.CreatedAt, registration.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		registration models.Registration
		utr          sql.NullString
		paymentDate  sql.NullTime
	)
	err := row.Scan(
		&registration.ID, &registration.PublicID, &registration.CoordinatorID,
		pq.Array(&registration.StudentIDs), &registration.TotalAmount,
		&registration.PaymentStatus, &registration.Approval,
		&utr, &paymentDate,
		&registration.CreatedAt, &registration.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	registration.UTR = utr.String
	if paymentDate.Valid {
		date := paymentDate.Time
		registration.PaymentDate = &date
	}
	if registration.StudentIDs == nil {
		registration.StudentIDs = []string{}
	}
	return &registration, nil
}

func (s *PostgresRegistrations) findOne(ctx context.Context, where string, arg any) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE `+where, arg)
	return scanRegistration(row)
}

func (s *PostgresRegistrations) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	return s.findOne(ctx, "id = $1", id)
}

func (s *PostgresRegistrations) FindByCoordinator(ctx context.Context, coordinatorID string) (*models.Registration, error) {
	return s.findOne(ctx, "coordinator_id = $1", coordinatorID)
}

func (s *PostgresRegistrations) FindByPublicID(ctx context.Context, publicID string) (*models.Registration, error) {
	return s.findOne(ctx, "public_id = $1", publicID)
}

func (s *PostgresRegistrations) FindByUTR(ctx context.Context, utr string) (*models.Registration, error) {
	return s.findOne(ctx, "utr = $1", utr)
}

func (s *PostgresRegistrations) Execute(ctx context.Context, id string,
	validate func(*models.Registration) error,
	apply func(*models.Registration) error,
) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
	registration, err := scanRegistration(row)
	if err != nil {
		return nil, err
	}
	if err := validate(registration); err != nil {
		return nil, err
	}
	if err := apply(registration); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE registrations SET
			student_ids = $2, total_amount = $3, payment_status = $4,
			approval_status = $5, utr = $6, payment_date = $7, updated_at = $8
		WHERE id = $1`,
		registration.ID, pq.Array(registration.StudentIDs), registration.TotalAmount,
		registration.PaymentStatus, registration.Approval,
		nullString(registration.UTR), nullTime(registration.PaymentDate),
		registration.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == uniqueViolation {
		return nil, sentinel.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return registration, nil
}

func (s *PostgresRegistrations) List(ctx context.Context, filter RegistrationFilter) ([]*models.Registration, int, error) {
	where := "TRUE"
	args := []any{}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		where += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	if filter.Approval != "" {
		args = append(args, filter.Approval)
		where += fmt.Sprintf(" AND approval_status = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registrations WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE ` + where +
		" ORDER BY created_at DESC"
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var registrations []*models.Registration
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		registrations = append(registrations, registration)
	}
	return registrations, total, rows.Err()
}

func (s *PostgresRegistrations) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM registrations").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return total, nil
}

func (s *PostgresRegistrations) CountByPayment(ctx context.Context) (map[models.PaymentStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payment_status, COUNT(*) FROM registrations GROUP BY payment_status")
	if err != nil {
		return nil, fmt.Errorf("count by payment: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.PaymentStatus]int)
	for rows.Next() {
		var (
			status models.PaymentStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan payment count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

const studentColumns = `id, public_id, registration_id, name, grade, section,
	subjects, category, fee, parent_name, parent_contact, status, created_at, updated_at`

// PostgresStudents persists students in the students table.
type PostgresStudents struct {
	db *sql.DB
}

func NewPostgresStudents(db *sql.DB) *PostgresStudents {
	return &PostgresStudents{db: db}
}

func insertStudent(ctx context.Context, execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, student *models.Student) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		student.ID, student.PublicID, student.RegistrationID, student.Name,
		student.Grade, student.Section, student.Subjects, student.Category,
		student.Fee, student.ParentName, student.ParentContact, student.Status,
		student.CreatedAt, student.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (s *PostgresStudents) Create(ctx context.Context, student *models.Student) error {
	return insertStudent(ctx, s.db, student)
}

func (s *PostgresStudents) CreateBatch(ctx context.Context, students []*models.Student) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, student := range students {
		if err := insertStudent(ctx, tx, student); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var student models.Student
	err := row.Scan(
		&student.ID, &student.PublicID, &student.RegistrationID, &student.Name,
		&student.Grade, &student.Section, &student.Subjects, &student.Category,
		&student.Fee, &student.ParentName, &student.ParentContact, &student.Status,
		&student.CreatedAt, &student.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return &student, nil
}

func (s *PostgresStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

func (s *PostgresStudents) FindByIDs(ctx context.Context, ids []string) ([]*models.Student, error) {
	if len(ids) == 0 {
		return []*models.Student{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Student, len(ids))
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		byID[student.ID] = student
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// preserve roster order
	students := make([]*models.Student, 0, len(ids))
	for _, id := range ids {
		if student, ok := byID[id]; ok {
			students = append(students, student)
		}
	}
	return students, nil
}

func (s *PostgresStudents) Update(ctx context.Context, student *models.Student) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE students SET
			name = $2, grade = $3, section = $4, subjects = $5,
			category = $6, fee = $7, parent_name = $8, parent_contact = $9,
			status = $10, updated_at = $11
		WHERE id = $1`,
		student.ID, student.Name, student.Grade, student.Section,
		student.Subjects, student.Category, student.Fee, student.ParentName,
		student.ParentContact, student.Status, student.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStudents) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStudents) UpdateStatusByRegistration(ctx context.Context, registrationID string, status models.StudentStatus, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE students SET status = $2, updated_at = $3 WHERE registration_id = $1",
		registrationID, status, now)
	if err != nil {
		return fmt.Errorf("cascade student status: %w", err)
	}
	return nil
}

func (s *PostgresStudents) List(ctx context.Context, filter StudentFilter) ([]*models.Student, int, error) {
	where := "TRUE"
	args := []any{}
	if filter.RegistrationID != "" {
		args = append(args, filter.RegistrationID)
		where += fmt.Sprintf(" AND registration_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Grade != 0 {
		args = append(args, filter.Grade)
		where += fmt.Sprintf(" AND grade = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM students WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + where +
		" ORDER BY public_id"
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, student)
	}
	return students, total, rows.Err()
}

func (s *PostgresStudents) MaxSequence(ctx context.Context) (int64, error) {
	// public_id is BOMO followed by six digits; strip the prefix and take
	// the numeric max.
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(CAST(SUBSTRING(public_id FROM 5) AS BIGINT)) FROM students").Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max student sequence: %w", err)
	}
	return max.Int64, nil
}

func (s *PostgresStudents) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}
