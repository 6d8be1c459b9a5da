package store

import (
	"context"

	"github.com/Dibyendu78/Brain-O-Math/internal/coordinator/models"
)

// Store persists coordinator accounts. Implementations return
// sentinel.ErrNotFound and sentinel.ErrConflict; services translate them
// into coded domain errors.
type Store interface {
	// Create inserts a new account. ErrConflict when the email or the
	// registration ID is already taken.
	Create(ctx context.Context, c *models.Coordinator) error
	FindByID(ctx context.Context, id string) (*models.Coordinator, error)
	FindByEmail(ctx context.Context, email string) (*models.Coordinator, error)
	// FindByIDs batch-fetches accounts for denormalized admin views.
	// Missing IDs are absent from the result, not an error.
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Coordinator, error)
	Count(ctx context.Context) (int, error)
}
