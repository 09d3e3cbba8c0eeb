// Package postgres implements the storage port on gorm and PostgreSQL.
package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db   *gorm.DB
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Patients() patient.Repository { return &patientRepo{db: s.db, locking: s.inTx} }
func (s *Store) Visits() visit.Repository     { return &visitRepo{db: s.db} }
func (s *Store) Appointments() appointment.Repository {
	return &appointmentRepo{db: s.db, locking: s.inTx}
}
func (s *Store) Outbox() events.Writer { return &OutboxRepository{db: s.db} }

// Atomic runs fn in one database transaction. Nested calls reuse it.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// forUpdate row-locks reads made inside a transaction so a concurrent
// transition of the same row waits instead of racing.
func forUpdate(db *gorm.DB, locking bool) *gorm.DB {
	if locking {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
