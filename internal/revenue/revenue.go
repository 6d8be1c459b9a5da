// Package revenue keeps the derived ledger of verified payments. Records
// are created when a payment is verified and removed when the decision is
// flipped to rejected; the ledger never holds entries for unverified money.
package revenue

import (
	"context"
	"time"
)

// OutcomeVerified is the only outcome a live record carries; rejected
// registrations have their record deleted instead.
const OutcomeVerified = "verified"

// Record is one verified payment. School and coordinator names are copied
// in at verification time so listings need no join.
type Record struct {
	ID              string    `json:"id"`
	RegistrationID  string    `json:"registrationId"`
	PublicID        string    `json:"registrationNumber"`
	CoordinatorID   string    `json:"coordinatorId"`
	SchoolName      string    `json:"schoolName,omitempty"`
	CoordinatorName string    `json:"coordinatorName,omitempty"`
	Amount          int       `json:"amount"`
	StudentCount    int       `json:"studentCount"`
	Outcome         string    `json:"outcome"`
	VerifiedAt      time.Time `json:"verifiedAt"`
}

// MonthlyTotal is one month's rollup.
type MonthlyTotal struct {
	Year          int `json:"year"`
	Month         int `json:"month"`
	Amount        int `json:"amount"`
	Registrations int `json:"registrations"`
}

// Summary is the aggregate view of the ledger.
type Summary struct {
	TotalAmount   int `json:"totalAmount"`
	Registrations int `json:"registrations"`
	Students      int `json:"students"`
}

// Store persists the ledger.
type Store interface {
	// CreateIfAbsent records the verification once; a second call for the
	// same registration is a no-op, so flipping a decision back and forth
	// never double-counts.
	CreateIfAbsent(ctx context.Context, record *Record) error
	// DeleteByRegistration removes the registration's entry if present.
	DeleteByRegistration(ctx context.Context, registrationID string) error
	FindByRegistration(ctx context.Context, registrationID string) (*Record, error)
	Summarize(ctx context.Context) (*Summary, error)
	// Monthly returns rollups for the most recent months, newest first.
	Monthly(ctx context.Context, months int) ([]*MonthlyTotal, error)
	// Recent returns the latest records, newest first.
	Recent(ctx context.Context, limit int) ([]*Record, error)
	// List returns one page plus the unpaged total, newest first.
	List(ctx context.Context, page, limit int) ([]*Record, int, error)
}
