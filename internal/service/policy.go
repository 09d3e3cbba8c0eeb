package service

import (
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/google/uuid"
)

// Policy is the single place that decides what an actor may see and change.
// Admins see and change everything; doctors only what belongs to them.
type Policy struct{}

// Admit rejects actors the core does not serve.
func (Policy) Admit(actor domain.Actor) error {
	if actor.ID == uuid.Nil || !actor.Role.IsValid() {
		return ErrForbidden
	}
	return nil
}

// AuthorizeMutation allows admins, and doctors acting on an entity whose
// doctor (or assigned doctor) is themselves.
func (p Policy) AuthorizeMutation(actor domain.Actor, owner uuid.UUID) error {
	if err := p.Admit(actor); err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsDoctor() && owner == actor.ID {
		return nil
	}
	return ErrForbidden
}

// narrow intersects a requested doctor filter with the actor's own id.
func narrow(actor domain.Actor, requested *uuid.UUID) (scoped *uuid.UUID, empty bool) {
	if actor.IsAdmin() {
		return requested, false
	}
	id := actor.ID
	if requested != nil && *requested != id {
		return &id, true
	}
	return &id, false
}

func (p Policy) ScopeAppointments(actor domain.Actor, q appointment.ListAppointmentsQuery) (appointment.ListAppointmentsQuery, error) {
	if err := p.Admit(actor); err != nil {
		return q, err
	}
	var empty bool
	q.DoctorID, empty = narrow(actor, q.DoctorID)
	q.Empty = q.Empty || empty
	return q, nil
}

func (p Policy) ScopeVisits(actor domain.Actor, q visit.ListVisitsQuery) (visit.ListVisitsQuery, error) {
	if err := p.Admit(actor); err != nil {
		return q, err
	}
	var empty bool
	q.DoctorID, empty = narrow(actor, q.DoctorID)
	q.Empty = q.Empty || empty
	return q, nil
}

func (p Policy) ScopePatients(actor domain.Actor, q patient.ListPatientsQuery) (patient.ListPatientsQuery, error) {
	if err := p.Admit(actor); err != nil {
		return q, err
	}
	var empty bool
	q.AssignedDoctorID, empty = narrow(actor, q.AssignedDoctorID)
	q.Empty = q.Empty || empty
	return q, nil
}
