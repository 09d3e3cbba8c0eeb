package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type VisitService struct {
	store    store.Store
	registry *visit.Registry
	policy   Policy
	auditSvc *AuditService
	metrics  *metrics.Collector
	opts     Options
	log      *zap.Logger
	fail     failure
}

func NewVisitService(
	st store.Store,
	registry *visit.Registry,
	auditSvc *AuditService,
	m *metrics.Collector,
	opts Options,
	log *zap.Logger,
) *VisitService {
	return &VisitService{
		store:    st,
		registry: registry,
		auditSvc: auditSvc,
		metrics:  m,
		opts:     opts,
		log:      log,
		fail: failure{log: log, onFatal: func(op string) {
			m.OperationFailuresTotal.WithLabelValues(op).Inc()
		}},
	}
}

type dischargedEvent struct {
	PatientID uuid.UUID `json:"patient_id"`
	VisitID   uuid.UUID `json:"visit_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
}

// CreateVisit validates cmd against its variant's rules and stores it. A
// discharge visit also moves the patient to discharged in the same unit of
// work.
func (s *VisitService) CreateVisit(ctx context.Context, cmd *visit.CreateVisitCommand, actor domain.Actor) (*visit.Visit, error) {
	ctx, span := tracer.Start(ctx, "VisitService.CreateVisit")
	defer span.End()
	span.SetAttributes(attribute.String("visit.type", string(cmd.Type)), attribute.String("patient.id", cmd.PatientID.String()))

	if err := s.policy.Admit(actor); err != nil {
		return nil, err
	}

	// -------- Preconditions, in order -----------
	p, err := s.store.Patients().GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, s.fail.wrap(ctx, "create_visit", err, zap.String("patient_id", cmd.PatientID.String()))
	}
	if err := s.policy.AuthorizeMutation(actor, p.AssignedDoctorID); err != nil {
		return nil, err
	}
	variant, err := s.registry.Lookup(cmd.Type)
	if err != nil {
		return nil, err
	}
	payload := cmd.Payload
	if payload == nil {
		if payload, err = variant.Decode(nil); err != nil {
			return nil, err
		}
	}
	if payload.VisitType() != variant.Type() {
		return nil, visit.ErrPayloadMismatch
	}
	doctorID := cmd.DoctorID
	if actor.IsDoctor() {
		doctorID = actor.ID
	}
	if err := validateVisitCommand(cmd, doctorID); err != nil {
		return nil, err
	}
	if p.IsDischarged() && !s.opts.AllowDischargedActivity {
		return nil, patient.ErrPatientDischarged
	}

	now := s.opts.now()
	v := &visit.Visit{
		ID:        uuid.New(),
		PatientID: p.ID,
		DoctorID:  doctorID,
		Type:      variant.Type(),
		Date:      cmd.Date.UTC(),
		Notes:     cmd.Notes,
		CreatedBy: actor.ID,
	}

	err = s.store.Atomic(ctx, func(tx store.Store) error {
		if err := variant.Validate(ctx, payload, tx.Visits()); err != nil {
			return err
		}
		if err := variant.Apply(v, payload); err != nil {
			return err
		}
		if err := tx.Visits().Create(ctx, v); err != nil {
			return fmt.Errorf("creating visit: %w", err)
		}
		if err := enqueue(ctx, tx, events.TypeVisitCreated, v.ID, visitSummary(v)); err != nil {
			return err
		}
		if !variant.DischargesPatient() {
			return nil
		}
		if err := tx.Patients().MarkDischarged(ctx, p.ID, now); err != nil {
			return fmt.Errorf("discharging patient: %w", err)
		}
		return enqueue(ctx, tx, events.TypePatientDischarged, p.ID, dischargedEvent{
			PatientID: p.ID, VisitID: v.ID, DoctorID: v.DoctorID,
		})
	})
	if err != nil {
		return nil, s.fail.wrap(ctx, "create_visit", err,
			zap.String("patient_id", p.ID.String()),
			zap.String("visit_type", string(v.Type)),
		)
	}

	s.metrics.VisitsCreatedTotal.WithLabelValues(string(v.Type)).Inc()
	if variant.DischargesPatient() {
		s.metrics.PatientsDischarged.Inc()
		s.log.Info("patient discharged",
			zap.String("patient_id", p.ID.String()),
			zap.String("visit_id", v.ID.String()),
		)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "visit",
		ResourceID:   v.ID.String(),
		Changes:      fmt.Sprintf(`{"visit_type":%q}`, v.Type),
	})

	return v, nil
}

// GetVisit returns the full visit including its payload.
func (s *VisitService) GetVisit(ctx context.Context, id uuid.UUID, actor domain.Actor) (*visit.Visit, error) {
	ctx, span := tracer.Start(ctx, "VisitService.GetVisit")
	defer span.End()

	if err := s.policy.Admit(actor); err != nil {
		return nil, err
	}
	v, err := s.store.Visits().GetByID(ctx, id)
	if err != nil {
		return nil, s.fail.wrap(ctx, "get_visit", err, zap.String("visit_id", id.String()))
	}
	if err := s.policy.AuthorizeMutation(actor, v.DoctorID); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor: actor, Action: domain.ActionRead, ResourceType: "visit", ResourceID: id.String(),
	})

	return v, nil
}

// ListVisitsForPatient returns the patient's visits visible to actor, newest
// first. Payloads are not loaded.
func (s *VisitService) ListVisitsForPatient(ctx context.Context, patientID uuid.UUID, actor domain.Actor) ([]*visit.Visit, error) {
	ctx, span := tracer.Start(ctx, "VisitService.ListVisitsForPatient")
	defer span.End()

	q, err := s.policy.ScopeVisits(actor, visit.ListVisitsQuery{PatientID: &patientID})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Patients().GetByID(ctx, patientID); err != nil {
		return nil, s.fail.wrap(ctx, "list_visits", err, zap.String("patient_id", patientID.String()))
	}

	visits, err := s.store.Visits().List(ctx, &q)
	if err != nil {
		return nil, s.fail.wrap(ctx, "list_visits", err, zap.String("patient_id", patientID.String()))
	}
	return visits, nil
}

func validateVisitCommand(cmd *visit.CreateVisitCommand, doctorID uuid.UUID) error {
	var errs []string

	if doctorID == uuid.Nil {
		errs = append(errs, "doctor_id is required")
	}
	if cmd.Date.IsZero() {
		errs = append(errs, "date is required")
	}

	if len(errs) > 0 {
		return domain.NewValidationError(errs...)
	}
	return nil
}

type visitEvent struct {
	VisitID   uuid.UUID  `json:"visit_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	Type      visit.Type `json:"visit_type"`
	Date      string     `json:"date"`
}

func visitSummary(v *visit.Visit) visitEvent {
	return visitEvent{
		VisitID:   v.ID,
		PatientID: v.PatientID,
		DoctorID:  v.DoctorID,
		Type:      v.Type,
		Date:      v.Date.Format(time.RFC3339),
	}
}
