package events

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"go.uber.org/zap"
)

// Handler emits one entry to a downstream transport.
type Handler interface {
	Handle(ctx context.Context, e *Entry) error
}

type HandlerFunc func(ctx context.Context, e *Entry) error

func (f HandlerFunc) Handle(ctx context.Context, e *Entry) error { return f(ctx, e) }

// Deliverer polls the outbox and hands pending entries to the handler in
// creation order. Delivery is at-least-once: an entry whose MarkDelivered
// fails is sent again on the next poll.
type Deliverer struct {
	store     Store
	handler   Handler
	metrics   *metrics.Collector
	log       *zap.Logger
	batchSize int
	interval  time.Duration
	now       func() time.Time
}

func NewDeliverer(store Store, handler Handler, m *metrics.Collector, log *zap.Logger) *Deliverer {
	return &Deliverer{
		store:     store,
		handler:   handler,
		metrics:   m,
		log:       log.Named("outbox"),
		batchSize: 100,
		interval:  2 * time.Second,
		now:       time.Now,
	}
}

func (d *Deliverer) WithBatchSize(size int) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// Start blocks until ctx is cancelled.
func (d *Deliverer) Start(ctx context.Context) {
	if d.store == nil || d.handler == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain delivers one batch and returns how many entries were handed off.
func (d *Deliverer) Drain(ctx context.Context) int {
	entries, err := d.store.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.log.Error("outbox fetch failed", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, entry := range entries {
		if err := d.handler.Handle(ctx, entry); err != nil {
			d.metrics.OutboxFailedTotal.Inc()
			d.log.Warn("outbox delivery failed",
				zap.Error(err),
				zap.String("event_id", entry.ID.String()),
				zap.String("type", entry.Type),
				zap.Int("attempts", entry.Attempts+1),
			)
			if err := d.store.MarkFailed(ctx, entry.ID); err != nil {
				d.log.Error("failed to record outbox attempt", zap.Error(err), zap.String("event_id", entry.ID.String()))
			}
			// Later entries may concern the same aggregate; keep order.
			break
		}
		if err := d.store.MarkDelivered(ctx, entry.ID, d.now().UTC()); err != nil {
			d.log.Error("failed to mark outbox delivered", zap.Error(err), zap.String("event_id", entry.ID.String()))
			continue
		}
		d.metrics.OutboxDeliveredTotal.Inc()
		delivered++
		d.log.Debug("outbox delivered", zap.String("event_id", entry.ID.String()), zap.String("type", entry.Type))
	}
	return delivered
}

// LogHandler writes entries to the log. It stands in for the broker when
// event publishing is disabled so the outbox still drains.
func LogHandler(log *zap.Logger) Handler {
	return HandlerFunc(func(_ context.Context, e *Entry) error {
		log.Info("event",
			zap.String("event_id", e.ID.String()),
			zap.String("type", e.Type),
			zap.String("aggregate_id", e.AggregateID.String()),
		)
		return nil
	})
}
