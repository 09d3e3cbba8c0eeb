package service

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service")

type Options struct {
	// AllowDischargedActivity permits visits and bookings for patients that
	// are already discharged.
	AllowDischargedActivity bool

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func enqueue(ctx context.Context, tx store.Store, eventType string, aggregateID uuid.UUID, payload any) error {
	entry, err := events.NewEntry(eventType, aggregateID, payload)
	if err != nil {
		return err
	}
	return tx.Outbox().Enqueue(ctx, entry)
}
