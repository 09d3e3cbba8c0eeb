package postgres

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type visitRepo struct {
	db *gorm.DB
}

func (r *visitRepo) Create(ctx context.Context, v *visit.Visit) error {
	err := r.db.WithContext(ctx).Create(v).Error
	if err == nil {
		return nil
	}
	// The followup target vanished between validation and insert.
	if pgCode(err) == codeForeignKeyViolation && v.PreviousVisitID != nil {
		return visit.ErrPreviousVisitNotFound
	}
	return fmt.Errorf("inserting visit: %w", err)
}

func (r *visitRepo) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	var v visit.Visit
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, translate(err, visit.ErrVisitNotFound)
	}
	return &v, nil
}

func (r *visitRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).
		Raw(`SELECT EXISTS (SELECT 1 FROM clinical.visits WHERE id = ?)`, id).
		Scan(&exists).Error
	if err != nil {
		return false, fmt.Errorf("checking visit: %w", err)
	}
	return exists, nil
}

func (r *visitRepo) List(ctx context.Context, q *visit.ListVisitsQuery) ([]*visit.Visit, error) {
	if q.Empty {
		return nil, nil
	}
	db := r.db.WithContext(ctx).Model(&visit.Visit{}).Omit("payload")
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Type != nil {
		db = db.Where("visit_type = ?", *q.Type)
	}

	var out []*visit.Visit
	if err := db.Order("visit_date DESC, created_at DESC, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	return out, nil
}
