package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxRepository stores events next to the rows they describe.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

var _ events.Store = (*OutboxRepository)(nil)

func (r *OutboxRepository) Enqueue(ctx context.Context, e *events.Entry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("events: insert outbox: %w", err)
	}
	return nil
}

func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]*events.Entry, error) {
	var out []*events.Entry
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL").
		Order("created_at, id").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("events: fetch pending: %w", err)
	}
	return out, nil
}

func (r *OutboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&events.Entry{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Update("delivered_at", at).Error
	if err != nil {
		return fmt.Errorf("events: mark delivered: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&events.Entry{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return fmt.Errorf("events: mark failed: %w", err)
	}
	return nil
}
