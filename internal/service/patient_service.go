package service

import (
	"context"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PatientService is read-only: intake is owned elsewhere and the only
// patient mutation, discharge, happens inside VisitService.
type PatientService struct {
	store    store.Store
	policy   Policy
	auditSvc *AuditService
	log      *zap.Logger
	fail     failure
}

func NewPatientService(st store.Store, auditSvc *AuditService, log *zap.Logger) *PatientService {
	return &PatientService{
		store:    st,
		auditSvc: auditSvc,
		log:      log,
		fail:     failure{log: log},
	}
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID, actor domain.Actor) (*patient.Patient, error) {
	ctx, span := tracer.Start(ctx, "PatientService.GetPatient")
	defer span.End()

	if err := s.policy.Admit(actor); err != nil {
		return nil, err
	}
	p, err := s.store.Patients().GetByID(ctx, id)
	if err != nil {
		return nil, s.fail.wrap(ctx, "get_patient", err, zap.String("patient_id", id.String()))
	}
	if err := s.policy.AuthorizeMutation(actor, p.AssignedDoctorID); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionRead,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})

	return p, nil
}

// ListPatients returns the patients visible to actor. Doctors only see the
// patients assigned to them.
func (s *PatientService) ListPatients(ctx context.Context, q patient.ListPatientsQuery, actor domain.Actor) ([]*patient.Patient, error) {
	ctx, span := tracer.Start(ctx, "PatientService.ListPatients")
	defer span.End()

	if q.Status != nil && !q.Status.IsValid() {
		return nil, domain.NewValidationError("status is invalid")
	}
	q.Search = strings.TrimSpace(q.Search)

	scoped, err := s.policy.ScopePatients(actor, q)
	if err != nil {
		return nil, err
	}
	patients, err := s.store.Patients().List(ctx, &scoped)
	if err != nil {
		return nil, s.fail.wrap(ctx, "list_patients", err)
	}
	return patients, nil
}
