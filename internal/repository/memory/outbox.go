package memory

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/google/uuid"
)

type outboxRepo struct{ s *Store }

func (r outboxRepo) Enqueue(ctx context.Context, e *events.Entry) error {
	return r.s.with(ctx, func(st *state) error {
		e.CreatedAt = r.s.now()
		st.outbox = append(st.outbox, *e)
		return nil
	})
}

func (r outboxRepo) FetchPending(ctx context.Context, limit int) ([]*events.Entry, error) {
	var out []*events.Entry
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range st.outbox {
			if len(out) == limit {
				break
			}
			if e.DeliveredAt == nil {
				e := e
				out = append(out, &e)
			}
		}
		return nil
	})
	return out, err
}

func (r outboxRepo) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, func(e *events.Entry) {
		if e.DeliveredAt == nil {
			e.DeliveredAt = &at
		}
	})
}

func (r outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(e *events.Entry) { e.Attempts++ })
}

func (r outboxRepo) update(ctx context.Context, id uuid.UUID, fn func(e *events.Entry)) error {
	return r.s.with(ctx, func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])
				return nil
			}
		}
		return nil
	})
}

// Pending returns undelivered entries in creation order.
func (s *Store) Pending(ctx context.Context) ([]*events.Entry, error) {
	return outboxRepo{s}.FetchPending(ctx, -1)
}
