// Package store persists registrations and students.
//
// Mutations of a registration go through Execute, which runs a validate and
// an apply step under the store's lock for that row, so concurrent roster
// changes and payment submissions serialize and the stored total always
// matches the roster.
package store

import (
	"context"
	"time"

	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
)

// RegistrationFilter narrows and pages a registration listing.
type RegistrationFilter struct {
	PaymentStatus models.PaymentStatus
	Approval      models.ApprovalStatus
	Page          int
	Limit         int
}

// StudentFilter narrows and pages a student listing.
type StudentFilter struct {
	RegistrationID string
	Status         models.StudentStatus
	Category       string
	Grade          int
	Page           int
	Limit          int
}

// RegistrationStore persists the aggregate roots.
type RegistrationStore interface {
	// Create stores a new registration. Returns sentinel.ErrConflict when the
	// public ID or the coordinator already has one.
	Create(ctx context.Context, registration *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByCoordinator(ctx context.Context, coordinatorID string) (*models.Registration, error)
	FindByPublicID(ctx context.Context, publicID string) (*models.Registration, error)
	// FindByUTR returns the registration holding the payment reference, or
	// sentinel.ErrNotFound when no registration has claimed it.
	FindByUTR(ctx context.Context, utr string) (*models.Registration, error)
	// Execute atomically mutates one registration: it loads the row under a
	// lock, runs validate, and only if that passes runs apply and persists
	// the result. Either error aborts the mutation unchanged.
	Execute(ctx context.Context, id string,
		validate func(*models.Registration) error,
		apply func(*models.Registration) error,
	) (*models.Registration, error)
	// List returns one page plus the unpaged total.
	List(ctx context.Context, filter RegistrationFilter) ([]*models.Registration, int, error)
	Count(ctx context.Context) (int, error)
	CountByPayment(ctx context.Context) (map[models.PaymentStatus]int, error)
}

// StudentStore persists enrolled students.
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) error
	CreateBatch(ctx context.Context, students []*models.Student) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
	// FindByIDs returns students in the order of ids; unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	// UpdateStatusByRegistration cascades an admin decision to every student
	// on the registration.
	UpdateStatusByRegistration(ctx context.Context, registrationID string, status models.StudentStatus, now time.Time) error
	List(ctx context.Context, filter StudentFilter) ([]*models.Student, int, error)
	// MaxSequence returns the highest numeric suffix among issued student
	// IDs, 0 when none exist. Used to seed the sequence allocator.
	MaxSequence(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)
}
