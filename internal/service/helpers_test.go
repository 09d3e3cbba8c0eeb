package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testNow = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
	testDay = time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
)

type env struct {
	store        *memory.Store
	metrics      *metrics.Collector
	visits       *VisitService
	appointments *AppointmentService
	patients     *PatientService

	admin   domain.Actor
	doctor  domain.Actor
	doctor2 domain.Actor
}

type envOption func(*Options)

func disallowDischarged(o *Options) { o.AllowDischargedActivity = false }

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	st := memory.New().WithClock(func() time.Time { return testNow })
	return newEnvWithStore(t, st, st, opts...)
}

// newEnvWithStore lets a test wrap the memory store while still inspecting
// the underlying data through mem.
func newEnvWithStore(t *testing.T, mem *memory.Store, st store.Store, opts ...envOption) *env {
	t.Helper()
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	log := zap.NewNop()

	audit := NewAuditService(mem.Audit(), m, log)
	t.Cleanup(audit.Shutdown)

	o := Options{AllowDischargedActivity: true, Now: func() time.Time { return testNow }}
	for _, fn := range opts {
		fn(&o)
	}

	return &env{
		store:        mem,
		metrics:      m,
		visits:       NewVisitService(st, visit.DefaultRegistry(), audit, m, o, log),
		appointments: NewAppointmentService(st, audit, m, o, log),
		patients:     NewPatientService(st, audit, log),
		admin:        domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
		doctor:       domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor},
		doctor2:      domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor},
	}
}

func (e *env) seedPatient(t *testing.T, doctor domain.Actor) *patient.Patient {
	t.Helper()
	p := &patient.Patient{
		ID:               uuid.New(),
		FirstName:        "Ada",
		LastName:         "Lovelace-" + uuid.NewString()[:4],
		DateOfBirth:      time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC),
		AssignedDoctorID: doctor.ID,
	}
	require.NoError(t, e.store.Patients().Create(context.Background(), p))
	return p
}

func (e *env) book(t *testing.T, actor domain.Actor, p *patient.Patient, start, end appointment.ClockTime) *appointment.Appointment {
	t.Helper()
	a, err := e.appointments.BookAppointment(context.Background(), bookCmd(p, start, end), actor)
	require.NoError(t, err)
	return a
}

func bookCmd(p *patient.Patient, start, end appointment.ClockTime) *appointment.BookAppointmentCommand {
	return &appointment.BookAppointmentCommand{
		PatientID: p.ID,
		DoctorID:  p.AssignedDoctorID,
		Date:      testDay,
		Time:      appointment.TimeRange{Start: start, End: end},
	}
}

func (e *env) pendingTypes(t *testing.T) []string {
	t.Helper()
	entries, err := e.store.Pending(context.Background())
	require.NoError(t, err)
	types := make([]string, 0, len(entries))
	for _, en := range entries {
		types = append(types, en.Type)
	}
	return types
}

func (e *env) allAppointments(t *testing.T) []*appointment.Appointment {
	t.Helper()
	appts, err := e.store.Appointments().List(context.Background(), &appointment.ListAppointmentsQuery{})
	require.NoError(t, err)
	return appts
}

// faultyStore fails patient discharge inside units of work.
type faultyStore struct {
	store.Store
	dischargeErr error
}

func (f faultyStore) Patients() patient.Repository {
	return faultyPatients{Repository: f.Store.Patients(), err: f.dischargeErr}
}

func (f faultyStore) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Atomic(ctx, func(tx store.Store) error {
		return fn(faultyStore{Store: tx, dischargeErr: f.dischargeErr})
	})
}

type faultyPatients struct {
	patient.Repository
	err error
}

func (f faultyPatients) MarkDischarged(context.Context, uuid.UUID, time.Time) error {
	return f.err
}
