package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/visit"
	"github.com/google/uuid"
)

type visitRepo struct{ s *Store }

func (r visitRepo) Create(ctx context.Context, v *visit.Visit) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.visits[v.ID]; ok {
			return fmt.Errorf("memory: visit %s already exists", v.ID)
		}
		now := r.s.now()
		v.CreatedAt, v.UpdatedAt = now, now
		st.visits[v.ID] = *v
		return nil
	})
}

func (r visitRepo) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	var out *visit.Visit
	err := r.s.with(ctx, func(st *state) error {
		v, ok := st.visits[id]
		if !ok {
			return visit.ErrVisitNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r visitRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.s.with(ctx, func(st *state) error {
		_, ok = st.visits[id]
		return nil
	})
	return ok, err
}

func (r visitRepo) List(ctx context.Context, q *visit.ListVisitsQuery) ([]*visit.Visit, error) {
	var out []*visit.Visit
	err := r.s.with(ctx, func(st *state) error {
		for _, v := range st.visits {
			if q.Matches(&v) {
				v := v
				v.Payload = nil
				out = append(out, &v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return visit.Less(out[i], out[j]) })
	return out, err
}
