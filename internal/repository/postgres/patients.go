package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type patientRepo struct {
	db      *gorm.DB
	locking bool
}

func (r *patientRepo) Create(ctx context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = patient.StatusActive
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *patientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := forUpdate(r.db.WithContext(ctx), r.locking).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, patient.ErrPatientNotFound)
	}
	return &p, nil
}

func (r *patientRepo) List(ctx context.Context, q *patient.ListPatientsQuery) ([]*patient.Patient, error) {
	if q.Empty {
		return nil, nil
	}
	db := r.db.WithContext(ctx).Model(&patient.Patient{})
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.AssignedDoctorID != nil {
		db = db.Where("assigned_doctor_id = ?", *q.AssignedDoctorID)
	}
	if q.Search != "" {
		db = db.Where("(first_name || ' ' || last_name) ILIKE ?", "%"+q.Search+"%")
	}

	var out []*patient.Patient
	if err := db.Order("last_name, first_name, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	return out, nil
}

// MarkDischarged keeps an existing discharged_at so repeating a discharge
// does not move the original timestamp.
func (r *patientRepo) MarkDischarged(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&patient.Patient{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        patient.StatusDischarged,
			"discharged_at": gorm.Expr("COALESCE(discharged_at, ?)", at),
		})
	if res.Error != nil {
		return fmt.Errorf("discharging patient: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}
