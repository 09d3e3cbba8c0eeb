package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var nonBlockingStatuses = []appointment.AppointmentStatus{
	appointment.StatusCancelled,
	appointment.StatusNoShow,
}

type appointmentRepo struct {
	db      *gorm.DB
	locking bool
}

func (r *appointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	a.Date = appointment.DateOf(a.Date)
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return scheduleError("inserting appointment", err)
	}
	return nil
}

func (r *appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := forUpdate(r.db.WithContext(ctx), r.locking).First(&a, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, appointment.ErrAppointmentNotFound)
	}
	return &a, nil
}

func (r *appointmentRepo) List(ctx context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	if q.Empty {
		return nil, nil
	}
	db := r.db.WithContext(ctx).Model(&appointment.Appointment{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		db = db.Where("appointment_date >= ?", appointment.DateOf(*q.DateFrom))
	}
	if q.DateTo != nil {
		db = db.Where("appointment_date <= ?", appointment.DateOf(*q.DateTo))
	}

	var out []*appointment.Appointment
	if err := db.Order("appointment_date, start_minute, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return out, nil
}

func (r *appointmentRepo) Save(ctx context.Context, a *appointment.Appointment) error {
	a.Date = appointment.DateOf(a.Date)
	res := r.db.WithContext(ctx).
		Model(a).
		Select(
			"appointment_date", "start_minute", "end_minute", "status", "notes",
			"external_calendar_id", "cancelled_at", "cancellation_reason", "cancelled_by",
			"completed_at", "updated_at",
		).
		Updates(a)
	if res.Error != nil {
		return scheduleError("updating appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *appointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&appointment.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

// LockSchedule takes a transaction-scoped advisory lock keyed on the
// doctor and day. Outside a transaction it would release immediately.
func (r *appointmentRepo) LockSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	key := doctorID.String() + "/" + appointment.FormatDate(appointment.DateOf(date))
	if err := r.db.WithContext(ctx).Exec(`SELECT pg_advisory_xact_lock(hashtextextended(?, 0))`, key).Error; err != nil {
		return fmt.Errorf("locking schedule: %w", err)
	}
	return nil
}

func (r *appointmentRepo) FindOverlapping(ctx context.Context, doctorID uuid.UUID, date time.Time, tr appointment.TimeRange, excludeID *uuid.UUID) (*appointment.Appointment, error) {
	db := r.db.WithContext(ctx).
		Where("doctor_id = ? AND appointment_date = ?", doctorID, appointment.DateOf(date)).
		Where("start_minute < ? AND end_minute > ?", tr.End, tr.Start).
		Where("status NOT IN ?", nonBlockingStatuses)
	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}

	var found []*appointment.Appointment
	if err := db.Order("start_minute, id").Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("finding overlapping appointments: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// scheduleError maps the exclusion constraint to a conflict. The database
// does not say which row blocked the write, so ExistingID stays nil.
func scheduleError(op string, err error) error {
	switch pgCode(err) {
	case codeExclusionViolation, codeUniqueViolation:
		return &appointment.ConflictError{}
	}
	return fmt.Errorf("%s: %w", op, err)
}
