// Package memory is an in-process implementation of the storage port used
// by tests and the single-node dev server.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/google/uuid"
)

type state struct {
	patients     map[uuid.UUID]patient.Patient
	visits       map[uuid.UUID]visit.Visit
	appointments map[uuid.UUID]appointment.Appointment
	outbox       []events.Entry
	audit        []domain.AuditLog
}

func newState() *state {
	return &state{
		patients:     make(map[uuid.UUID]patient.Patient),
		visits:       make(map[uuid.UUID]visit.Visit),
		appointments: make(map[uuid.UUID]appointment.Appointment),
	}
}

// clone copies every collection. Entities are stored by value, so copying
// the maps is enough to isolate a transaction from committed data.
func (s *state) clone() *state {
	c := &state{
		patients:     make(map[uuid.UUID]patient.Patient, len(s.patients)),
		visits:       make(map[uuid.UUID]visit.Visit, len(s.visits)),
		appointments: make(map[uuid.UUID]appointment.Appointment, len(s.appointments)),
		outbox:       append([]events.Entry(nil), s.outbox...),
		audit:        append([]domain.AuditLog(nil), s.audit...),
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.visits {
		c.visits[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	return c
}

type db struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

// Store serializes every operation behind one mutex. Atomic holds the
// mutex for the whole unit and works on a copy that replaces the committed
// state only when fn succeeds.
type Store struct {
	db *db
	tx *state // non-nil inside Atomic; the mutex is already held
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{db: &db{data: newState(), now: time.Now}}
}

// WithClock makes CreatedAt/UpdatedAt deterministic in tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.db.now = now
	return s
}

func (s *Store) Patients() patient.Repository         { return patientRepo{s} }
func (s *Store) Visits() visit.Repository             { return visitRepo{s} }
func (s *Store) Appointments() appointment.Repository { return appointmentRepo{s} }
func (s *Store) Outbox() events.Writer                { return outboxRepo{s} }

// Events exposes the outbox for delivery.
func (s *Store) Events() events.Store { return outboxRepo{s} }

// Audit is the audit trail sink.
func (s *Store) Audit() *AuditRepository { return &AuditRepository{s} }

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.data.clone()
	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.data = work
	return nil
}

// with runs fn against the state visible to s.
func (s *Store) with(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.data)
}

func (s *Store) now() time.Time {
	return s.db.now().UTC()
}
