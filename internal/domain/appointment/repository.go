package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts a. Storage that enforces the schedule exclusion itself
	// returns *ConflictError when a overlaps an existing blocking appointment.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, q *ListAppointmentsQuery) ([]*Appointment, error)

	// Save writes every mutable column of a (slot, status, notes, tracking).
	Save(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// LockSchedule serializes writers on one doctor's day until the
	// surrounding unit of work ends.
	LockSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) error

	// FindOverlapping returns a blocking appointment of doctorID on date whose
	// range overlaps tr, or nil. excludeID skips the appointment being moved.
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, date time.Time, tr TimeRange, excludeID *uuid.UUID) (*Appointment, error)
}
