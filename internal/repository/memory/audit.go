package memory

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
)

type AuditRepository struct{ s *Store }

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return r.s.with(ctx, func(st *state) error {
		if entry.OccurredAt.IsZero() {
			entry.OccurredAt = r.s.now()
		}
		st.audit = append(st.audit, *entry)
		return nil
	})
}

func (r *AuditRepository) List(ctx context.Context) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := r.s.with(ctx, func(st *state) error {
		out = append(out, st.audit...)
		return nil
	})
	return out, err
}
