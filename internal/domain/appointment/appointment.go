package appointment

import (
	"time"

	"github.com/google/uuid"
)

// State transitions possibilities:
//
//	scheduled → completed
//	scheduled → cancelled
//	scheduled → no_show (end-of-day sweep, outside this service)
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// BlocksSchedule reports whether an appointment in this status occupies
// its slot.
func (s AppointmentStatus) BlocksSchedule() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	Date   time.Time         `gorm:"column:appointment_date;type:date;not null;index" json:"date"`
	Time   TimeRange         `gorm:"embedded" json:"time"`
	Status AppointmentStatus `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index" json:"status"`
	Notes  string            `gorm:"column:notes;type:text" json:"notes,omitempty"`

	// Correlation id owned by the calendar sync; never interpreted here.
	ExternalCalendarID *string `gorm:"column:external_calendar_id;type:varchar(255)" json:"external_calendar_id,omitempty"`

	// Cancellation tracking
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason,omitempty"`
	CancelledBy        *uuid.UUID `gorm:"column:cancelled_by;type:uuid" json:"cancelled_by,omitempty"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

// Conflicts reports whether a and b cannot both hold: same doctor, same
// day, both occupying their slot and overlapping in time.
func (a *Appointment) Conflicts(b *Appointment) bool {
	return a.ID != b.ID &&
		a.DoctorID == b.DoctorID &&
		a.Date.Equal(b.Date) &&
		a.Status.BlocksSchedule() &&
		b.Status.BlocksSchedule() &&
		a.Time.Overlaps(b.Time)
}

func (a *Appointment) CanTransitionTo(newStatus AppointmentStatus) bool {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusScheduled: {StatusCompleted, StatusCancelled, StatusNoShow},
		StatusCompleted: {},
		StatusCancelled: {},
		StatusNoShow:    {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (a *Appointment) Cancel(reason string, cancelledBy uuid.UUID, at time.Time) error {
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusCancelled
	a.CancelledAt = &at
	a.CancellationReason = reason
	a.CancelledBy = &cancelledBy
	return nil
}

func (a *Appointment) Complete(at time.Time) error {
	if !a.CanTransitionTo(StatusCompleted) {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusCompleted
	a.CompletedAt = &at
	return nil
}

// SameSlot reports whether date and tr equal the stored slot.
func (a *Appointment) SameSlot(date time.Time, tr TimeRange) bool {
	return a.Date.Equal(DateOf(date)) && a.Time == tr
}

type BookAppointmentCommand struct {
	PatientID          uuid.UUID
	DoctorID           uuid.UUID // ignored for doctor actors
	Date               time.Time
	Time               TimeRange
	Notes              string
	ExternalCalendarID *string
}

// UpdateAppointmentCommand carries optional changes. Date and Time are
// re-validated against the schedule only when they differ from the stored
// slot.
type UpdateAppointmentCommand struct {
	Date               *time.Time
	Time               *TimeRange
	Notes              *string
	ExternalCalendarID *string
}

type ListAppointmentsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *AppointmentStatus
	DateFrom  *time.Time // inclusive
	DateTo    *time.Time // inclusive

	// Empty is set by visibility scoping when the request can match nothing.
	Empty bool
}

// Matches applies q to a single appointment. Storage backends without a
// query language use it; SQL backends translate the same fields.
func (q *ListAppointmentsQuery) Matches(a *Appointment) bool {
	if q.Empty {
		return false
	}
	if q.PatientID != nil && a.PatientID != *q.PatientID {
		return false
	}
	if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
		return false
	}
	if q.Status != nil && a.Status != *q.Status {
		return false
	}
	if q.DateFrom != nil && a.Date.Before(DateOf(*q.DateFrom)) {
		return false
	}
	if q.DateTo != nil && a.Date.After(DateOf(*q.DateTo)) {
		return false
	}
	return true
}

// Less orders appointments by date, then start time, then id.
func Less(a, b *Appointment) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Time.Start != b.Time.Start {
		return a.Time.Start < b.Time.Start
	}
	return a.ID.String() < b.ID.String()
}
