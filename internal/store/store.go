// Package store defines the storage port the clinical services run against.
package store

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
)

// Store gives access to every collection the core reads or writes.
//
// Atomic runs fn against a Store whose repositories share one unit of work.
// If fn returns an error nothing fn wrote is kept. Calling Atomic on the Store
// handed to fn joins the outer unit instead of nesting.
type Store interface {
	Patients() patient.Repository
	Visits() visit.Repository
	Appointments() appointment.Repository
	Outbox() events.Writer

	Atomic(ctx context.Context, fn func(tx Store) error) error
}
