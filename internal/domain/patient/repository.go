package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Intake lives outside this service; this
	// exists for seeding.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// List returns patients matching q ordered by last name, first name.
	List(ctx context.Context, q *ListPatientsQuery) ([]*Patient, error)

	// MarkDischarged sets status=discharged. Returns ErrPatientNotFound if the row is gone.
	MarkDischarged(ctx context.Context, id uuid.UUID, at time.Time) error
}
