package appointment

import (
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound     = fmt.Errorf("appointment %w", domain.ErrNotFound)
	ErrAppointmentConflict     = fmt.Errorf("appointment time slot is already booked: %w", domain.ErrConflict)
	ErrInvalidStatusTransition = fmt.Errorf("invalid appointment status transition: %w", domain.ErrConflict)
	ErrInvalidTimeRange        = fmt.Errorf("appointment time range must satisfy 00:00 <= start < end <= 24:00: %w", domain.ErrValidation)
)

// ConflictError reports the existing appointment that blocks a booking so
// the caller can pick another slot. ExistingID is uuid.Nil when storage
// rejected the write without naming the row.
type ConflictError struct {
	ExistingID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ExistingID == uuid.Nil {
		return ErrAppointmentConflict.Error()
	}
	return fmt.Sprintf("%s (existing appointment %s)", ErrAppointmentConflict.Error(), e.ExistingID)
}

func (e *ConflictError) Unwrap() error {
	return ErrAppointmentConflict
}
