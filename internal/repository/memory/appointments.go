package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/google/uuid"
)

type appointmentRepo struct{ s *Store }

// Create and Save enforce the schedule exclusion themselves, like the
// database constraint does.
func (r appointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.appointments[a.ID]; ok {
			return fmt.Errorf("memory: appointment %s already exists", a.ID)
		}
		a.Date = appointment.DateOf(a.Date)
		if existing := overlapping(st, a.DoctorID, a.Date, a.Time, &a.ID, a.Status); existing != nil {
			return &appointment.ConflictError{ExistingID: existing.ID}
		}
		now := r.s.now()
		a.CreatedAt, a.UpdatedAt = now, now
		st.appointments[a.ID] = *a
		return nil
	})
}

func (r appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.s.with(ctx, func(st *state) error {
		a, ok := st.appointments[id]
		if !ok {
			return appointment.ErrAppointmentNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r appointmentRepo) List(ctx context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.s.with(ctx, func(st *state) error {
		for _, a := range st.appointments {
			if q.Matches(&a) {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return appointment.Less(out[i], out[j]) })
	return out, err
}

func (r appointmentRepo) Save(ctx context.Context, a *appointment.Appointment) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.appointments[a.ID]; !ok {
			return appointment.ErrAppointmentNotFound
		}
		a.Date = appointment.DateOf(a.Date)
		if existing := overlapping(st, a.DoctorID, a.Date, a.Time, &a.ID, a.Status); existing != nil {
			return &appointment.ConflictError{ExistingID: existing.ID}
		}
		a.UpdatedAt = r.s.now()
		st.appointments[a.ID] = *a
		return nil
	})
}

func (r appointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.appointments[id]; !ok {
			return appointment.ErrAppointmentNotFound
		}
		delete(st.appointments, id)
		return nil
	})
}

// LockSchedule is a no-op: every unit of work already holds the store mutex.
func (r appointmentRepo) LockSchedule(ctx context.Context, _ uuid.UUID, _ time.Time) error {
	return ctx.Err()
}

func (r appointmentRepo) FindOverlapping(ctx context.Context, doctorID uuid.UUID, date time.Time, tr appointment.TimeRange, excludeID *uuid.UUID) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.s.with(ctx, func(st *state) error {
		out = overlapping(st, doctorID, appointment.DateOf(date), tr, excludeID, appointment.StatusScheduled)
		return nil
	})
	return out, err
}

// overlapping returns the earliest blocking appointment that a candidate
// with the given slot and status would collide with.
func overlapping(st *state, doctorID uuid.UUID, date time.Time, tr appointment.TimeRange, excludeID *uuid.UUID, status appointment.AppointmentStatus) *appointment.Appointment {
	if !status.BlocksSchedule() {
		return nil
	}
	candidate := appointment.Appointment{DoctorID: doctorID, Date: date, Time: tr, Status: status}
	if excludeID != nil {
		candidate.ID = *excludeID
	}

	var found *appointment.Appointment
	for _, a := range st.appointments {
		if !candidate.Conflicts(&a) {
			continue
		}
		if found == nil || appointment.Less(&a, found) {
			a := a
			found = &a
		}
	}
	return found
}
