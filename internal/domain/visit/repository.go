package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error

	// GetByID loads the full visit including its payload.
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)

	// Exists is the cheap reference check used when resolving a followup target.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// List returns visits without their payload, ordered by Less.
	List(ctx context.Context, q *ListVisitsQuery) ([]*Visit, error)
}
