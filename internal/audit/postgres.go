package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists transition events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, registration_id, from_payment, to_payment,
			from_approval, to_approval, total_amount, student_count, actor, at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.RegistrationID, event.FromPayment, event.ToPayment,
		event.FromApproval, event.ToApproval, event.TotalAmount,
		event.StudentCount, event.Actor, event.At,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRegistration(ctx context.Context, registrationID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, registration_id, from_payment, to_payment,
		       from_approval, to_approval, total_amount, student_count, actor, at
		FROM audit_events WHERE registration_id = $1 ORDER BY at`,
		registrationID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		err := rows.Scan(
			&event.ID, &event.RegistrationID, &event.FromPayment, &event.ToPayment,
			&event.FromApproval, &event.ToApproval, &event.TotalAmount,
			&event.StudentCount, &event.Actor, &event.At,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
