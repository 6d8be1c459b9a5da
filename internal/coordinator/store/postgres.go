package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dibyendu78/Brain-O-Math/internal/coordinator/models"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

// Postgres persists coordinator accounts in the coordinators table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const coordinatorColumns = `id, school_name, school_address, name, email, phone, credential_hash, registration_id, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, c *models.Coordinator) error {
	query := `
		INSERT INTO coordinators (` + coordinatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.SchoolName, c.SchoolAddress, c.Name, c.Email, c.Phone,
		c.CredentialHash, c.RegistrationID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create coordinator: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Coordinator, error) {
	return s.findOne(ctx, `SELECT `+coordinatorColumns+` FROM coordinators WHERE id = $1`, id)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Coordinator, error) {
	return s.findOne(ctx, `SELECT `+coordinatorColumns+` FROM coordinators WHERE email = $1`, email)
}

func (s *Postgres) findOne(ctx context.Context, query string, arg any) (*models.Coordinator, error) {
	var c models.Coordinator
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID, &c.SchoolName, &c.SchoolAddress, &c.Name, &c.Email, &c.Phone,
		&c.CredentialHash, &c.RegistrationID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find coordinator: %w", err)
	}
	return &c, nil
}

func (s *Postgres) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Coordinator, error) {
	if len(ids) == 0 {
		return map[string]*models.Coordinator{}, nil
	}
	query := `SELECT ` + coordinatorColumns + ` FROM coordinators WHERE id = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find coordinators: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*models.Coordinator, len(ids))
	for rows.Next() {
		var c models.Coordinator
		if err := rows.Scan(
			&c.ID, &c.SchoolName, &c.SchoolAddress, &c.Name, &c.Email, &c.Phone,
			&c.CredentialHash, &c.RegistrationID, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan coordinator: %w", err)
		}
		out[c.ID] = &c
	}
	return out, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coordinators`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count coordinators: %w", err)
	}
	return n, nil
}
