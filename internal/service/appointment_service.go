package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AppointmentService struct {
	store    store.Store
	policy   Policy
	auditSvc *AuditService
	metrics  *metrics.Collector
	opts     Options
	log      *zap.Logger
	fail     failure
}

func NewAppointmentService(
	st store.Store,
	auditSvc *AuditService,
	m *metrics.Collector,
	opts Options,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		store:    st,
		auditSvc: auditSvc,
		metrics:  m,
		opts:     opts,
		log:      log,
		fail: failure{log: log, onFatal: func(op string) {
			m.OperationFailuresTotal.WithLabelValues(op).Inc()
		}},
	}
}

// BookAppointment reserves cmd's slot for the doctor. The overlap check and
// the insert run under the doctor's day lock, so two concurrent bookings of
// overlapping ranges cannot both succeed.
func (s *AppointmentService) BookAppointment(ctx context.Context, cmd *appointment.BookAppointmentCommand, actor domain.Actor) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.BookAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("patient.id", cmd.PatientID.String()), attribute.String("slot", cmd.Time.String()))

	if err := s.policy.Admit(actor); err != nil {
		return nil, err
	}

	// -------- Input Validation -----------
	if cmd.Date.IsZero() {
		return nil, domain.NewValidationError("date is required")
	}
	if err := cmd.Time.Validate(); err != nil {
		return nil, err
	}

	// ── Verify patient and ownership ───────────────────────────────────────
	p, err := s.store.Patients().GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, s.fail.wrap(ctx, "book_appointment", err, zap.String("patient_id", cmd.PatientID.String()))
	}
	if err := s.policy.AuthorizeMutation(actor, p.AssignedDoctorID); err != nil {
		return nil, err
	}
	doctorID := cmd.DoctorID
	if actor.IsDoctor() {
		doctorID = actor.ID
	}
	if doctorID == uuid.Nil {
		return nil, domain.NewValidationError("doctor_id is required")
	}
	if p.IsDischarged() && !s.opts.AllowDischargedActivity {
		return nil, patient.ErrPatientDischarged
	}

	a := &appointment.Appointment{
		ID:                 uuid.New(),
		PatientID:          p.ID,
		DoctorID:           doctorID,
		Date:               appointment.DateOf(cmd.Date),
		Time:               cmd.Time,
		Status:             appointment.StatusScheduled,
		Notes:              cmd.Notes,
		ExternalCalendarID: cmd.ExternalCalendarID,
		CreatedBy:          actor.ID,
	}

	err = s.store.Atomic(ctx, func(tx store.Store) error {
		if err := s.claimSlot(ctx, tx, a.DoctorID, a.Date, a.Time, nil); err != nil {
			return err
		}
		if err := tx.Appointments().Create(ctx, a); err != nil {
			return err
		}
		return enqueue(ctx, tx, events.TypeAppointmentBooked, a.ID, a)
	})
	if err != nil {
		return nil, s.rejectOrFail(ctx, "book_appointment", err, a.DoctorID, a.Date, a.Time, nil)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
	})
	s.log.Info("appointment booked",
		zap.String("appointment_id", a.ID.String()),
		zap.String("doctor_id", a.DoctorID.String()),
		zap.String("date", appointment.FormatDate(a.Date)),
		zap.String("slot", a.Time.String()),
	)

	return a, nil
}

// RescheduleAppointment moves the appointment to a new day and range.
func (s *AppointmentService) RescheduleAppointment(ctx context.Context, id uuid.UUID, newDate time.Time, newTime appointment.TimeRange, actor domain.Actor) (*appointment.Appointment, error) {
	return s.UpdateAppointment(ctx, id, &appointment.UpdateAppointmentCommand{Date: &newDate, Time: &newTime}, actor)
}

// UpdateAppointment applies cmd to a scheduled appointment. The schedule is
// only re-checked when the slot actually moves.
func (s *AppointmentService) UpdateAppointment(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, actor domain.Actor) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.UpdateAppointment")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	if err := s.policy.Admit(actor); err != nil {
		return nil, err
	}
	if cmd.Time != nil {
		if err := cmd.Time.Validate(); err != nil {
			return nil, err
		}
	}
	if cmd.Date != nil && cmd.Date.IsZero() {
		return nil, domain.NewValidationError("date must not be empty")
	}

	var (
		updated *appointment.Appointment
		moved   bool
		// target slot, kept for conflict resolution after rollback
		doctorID uuid.UUID
		date     time.Time
		tr       appointment.TimeRange
	)
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		a, err := tx.Appointments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.policy.AuthorizeMutation(actor, a.DoctorID); err != nil {
			return err
		}
		if a.Status != appointment.StatusScheduled {
			return appointment.ErrInvalidStatusTransition
		}

		doctorID, date, tr = a.DoctorID, a.Date, a.Time
		if cmd.Date != nil {
			date = appointment.DateOf(*cmd.Date)
		}
		if cmd.Time != nil {
			tr = *cmd.Time
		}
		if !a.SameSlot(date, tr) {
			moved = true
			if err := s.claimSlot(ctx, tx, a.DoctorID, date, tr, &a.ID); err != nil {
				return err
			}
			a.Date, a.Time = date, tr
		}
		if cmd.Notes != nil {
			a.Notes = *cmd.Notes
		}
		if cmd.ExternalCalendarID != nil {
			ext := *cmd.ExternalCalendarID
			a.ExternalCalendarID = &ext
		}

		if err := tx.Appointments().Save(ctx, a); err != nil {
			return err
		}
		updated = a

		eventType := events.TypeAppointmentUpdated
		if moved {
			eventType = events.TypeAppointmentMoved
		}
		return enqueue(ctx, tx, eventType, a.ID, a)
	})
	if err != nil {
		if cmd.Date != nil || cmd.Time != nil {
			return nil, s.rejectOrFail(ctx, "update_appointment", err, doctorID, date, tr, &id)
		}
		return nil, s.fail.wrap(ctx, "update_appointment", err, zap.String("appointment_id", id.String()))
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		Changes:      fmt.Sprintf(`{"rescheduled":%t}`, moved),
	})

	return updated, nil
}

// MarkCompleted moves a scheduled appointment to completed.
func (s *AppointmentService) MarkCompleted(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, error) {
	return s.transition(ctx, "complete_appointment", id, actor, events.TypeAppointmentCompleted, func(a *appointment.Appointment, now time.Time) error {
		return a.Complete(now)
	})
}

// Cancel moves a scheduled appointment to cancelled, freeing its slot.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, actor domain.Actor, notes string) (*appointment.Appointment, error) {
	return s.transition(ctx, "cancel_appointment", id, actor, events.TypeAppointmentCancelled, func(a *appointment.Appointment, now time.Time) error {
		return a.Cancel(notes, actor.ID, now)
	})
}

func (s *AppointmentService) transition(
	ctx context.Context,
	op string,
	id uuid.UUID,
	actor domain.Actor,
	eventType string,
	apply func(a *appointment.Appointment, now time.Time) error,
) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService."+op)
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	if err := s.policy.Admit(actor); err != nil {
		return nil, err
	}

	var updated *appointment.Appointment
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		a, err := tx.Appointments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.policy.AuthorizeMutation(actor, a.DoctorID); err != nil {
			return err
		}
		if err := apply(a, s.opts.now()); err != nil {
			return err
		}
		if err := tx.Appointments().Save(ctx, a); err != nil {
			return fmt.Errorf("updating appointment status: %w", err)
		}
		updated = a
		return enqueue(ctx, tx, eventType, a.ID, a)
	})
	if err != nil {
		return nil, s.fail.wrap(ctx, op, err, zap.String("appointment_id", id.String()))
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(updated.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		Changes:      fmt.Sprintf(`{"status":%q}`, updated.Status),
	})

	return updated, nil
}

// DeleteAppointment physically removes an appointment. No schedule check
// is needed since removal can only free time.
func (s *AppointmentService) DeleteAppointment(ctx context.Context, id uuid.UUID, actor domain.Actor) error {
	ctx, span := tracer.Start(ctx, "AppointmentService.DeleteAppointment")
	defer span.End()

	if err := s.policy.Admit(actor); err != nil {
		return err
	}

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		a, err := tx.Appointments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.policy.AuthorizeMutation(actor, a.DoctorID); err != nil {
			return err
		}
		if err := tx.Appointments().Delete(ctx, id); err != nil {
			return err
		}
		return enqueue(ctx, tx, events.TypeAppointmentDeleted, id, a)
	})
	if err != nil {
		return s.fail.wrap(ctx, "delete_appointment", err, zap.String("appointment_id", id.String()))
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor: actor, Action: domain.ActionDelete, ResourceType: "appointment", ResourceID: id.String(),
	})
	return nil
}

func (s *AppointmentService) GetAppointment(ctx context.Context, id uuid.UUID, actor domain.Actor) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.GetAppointment")
	defer span.End()

	if err := s.policy.Admit(actor); err != nil {
		return nil, err
	}
	a, err := s.store.Appointments().GetByID(ctx, id)
	if err != nil {
		return nil, s.fail.wrap(ctx, "get_appointment", err, zap.String("appointment_id", id.String()))
	}
	if err := s.policy.AuthorizeMutation(actor, a.DoctorID); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor: actor, Action: domain.ActionRead, ResourceType: "appointment", ResourceID: id.String(),
	})

	return a, nil
}

// ListAppointments returns appointments matching q, ordered by date then
// start time. Doctors only ever see their own.
func (s *AppointmentService) ListAppointments(ctx context.Context, q appointment.ListAppointmentsQuery, actor domain.Actor) ([]*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.ListAppointments")
	defer span.End()

	if q.Status != nil && !q.Status.IsValid() {
		return nil, domain.NewValidationError("status is invalid")
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return nil, domain.NewValidationError("date_to must not be before date_from")
	}
	scoped, err := s.policy.ScopeAppointments(actor, q)
	if err != nil {
		return nil, err
	}

	appts, err := s.store.Appointments().List(ctx, &scoped)
	if err != nil {
		return nil, s.fail.wrap(ctx, "list_appointments", err)
	}
	return appts, nil
}

// claimSlot locks the doctor's day and fails with *ConflictError when tr
// overlaps a blocking appointment other than excludeID.
func (s *AppointmentService) claimSlot(ctx context.Context, tx store.Store, doctorID uuid.UUID, date time.Time, tr appointment.TimeRange, excludeID *uuid.UUID) error {
	appts := tx.Appointments()
	if err := appts.LockSchedule(ctx, doctorID, date); err != nil {
		return fmt.Errorf("locking schedule: %w", err)
	}
	existing, err := appts.FindOverlapping(ctx, doctorID, date, tr, excludeID)
	if err != nil {
		return fmt.Errorf("checking conflicts: %w", err)
	}
	if existing != nil {
		return &appointment.ConflictError{ExistingID: existing.ID}
	}
	return nil
}

// rejectOrFail counts conflicts and, when storage rejected the write
// without naming the blocking row, looks it up so callers always get an id.
func (s *AppointmentService) rejectOrFail(
	ctx context.Context,
	op string,
	err error,
	doctorID uuid.UUID,
	date time.Time,
	tr appointment.TimeRange,
	excludeID *uuid.UUID,
) error {
	var conflict *appointment.ConflictError
	if !errors.As(err, &conflict) {
		return s.fail.wrap(ctx, op, err)
	}
	s.metrics.BookingConflictsTotal.Inc()

	if conflict.ExistingID == uuid.Nil && doctorID != uuid.Nil {
		existing, lookupErr := s.store.Appointments().FindOverlapping(ctx, doctorID, date, tr, excludeID)
		if lookupErr != nil {
			s.log.Warn("could not resolve conflicting appointment", zap.Error(lookupErr))
		} else if existing != nil {
			conflict = &appointment.ConflictError{ExistingID: existing.ID}
		}
	}
	return conflict
}
