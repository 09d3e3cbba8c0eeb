package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/patient"
	"github.com/google/uuid"
)

type patientRepo struct{ s *Store }

func (r patientRepo) Create(ctx context.Context, p *patient.Patient) error {
	return r.s.with(ctx, func(st *state) error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if _, ok := st.patients[p.ID]; ok {
			return fmt.Errorf("memory: patient %s already exists", p.ID)
		}
		now := r.s.now()
		p.CreatedAt, p.UpdatedAt = now, now
		if p.Status == "" {
			p.Status = patient.StatusActive
		}
		st.patients[p.ID] = *p
		return nil
	})
}

func (r patientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var out *patient.Patient
	err := r.s.with(ctx, func(st *state) error {
		p, ok := st.patients[id]
		if !ok {
			return patient.ErrPatientNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r patientRepo) List(ctx context.Context, q *patient.ListPatientsQuery) ([]*patient.Patient, error) {
	var out []*patient.Patient
	err := r.s.with(ctx, func(st *state) error {
		for _, p := range st.patients {
			if q.Matches(&p) {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return patient.Less(out[i], out[j]) })
	return out, err
}

func (r patientRepo) MarkDischarged(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.with(ctx, func(st *state) error {
		p, ok := st.patients[id]
		if !ok {
			return patient.ErrPatientNotFound
		}
		p.MarkDischarged(at)
		p.UpdatedAt = r.s.now()
		st.patients[id] = p
		return nil
	})
}
