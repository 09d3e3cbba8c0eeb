package service

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// AuditEntry is what a service reports about one completed operation. The
// request metadata is taken from the context.
type AuditEntry struct {
	Actor        domain.Actor
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      string // JSON
}

// AuditService persists the audit trail off the request path. Entries go
// through a bounded queue; when it is full they are dropped and counted
// rather than slowing the caller down.
type AuditService struct {
	repo    AuditRepository
	metrics *metrics.Collector
	log     *zap.Logger
	now     func() time.Time

	queue    chan *domain.AuditLog
	stopped  chan struct{}
	stopOnce sync.Once
}

const (
	auditQueueSize    = 10_000
	auditWriteTimeout = 5 * time.Second
	auditDrainTimeout = 10 * time.Second
)

func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	s := &AuditService{
		repo:    repo,
		metrics: m,
		log:     log,
		now:     time.Now,
		queue:   make(chan *domain.AuditLog, auditQueueSize),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

// LogAsync stamps the entry with the request metadata and the current time
// and queues it. It never blocks.
func (s *AuditService) LogAsync(ctx context.Context, e AuditEntry) {
	meta := requestMetaFrom(ctx)
	changes := e.Changes
	if changes == "" {
		changes = "{}"
	}
	rec := &domain.AuditLog{
		ID:           uuid.New(),
		OccurredAt:   s.now().UTC(),
		ActorID:      e.Actor.ID,
		ActorRole:    e.Actor.Role,
		IPAddress:    meta.IPAddress,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		RequestID:    meta.RequestID,
		Changes:      changes,
	}

	select {
	case s.queue <- rec:
	default:
		s.metrics.AuditBufferDroppedTotal.Inc()
		s.log.Warn("audit queue full, entry dropped",
			zap.String("action", string(e.Action)),
			zap.String("resource_type", e.ResourceType),
			zap.String("resource_id", e.ResourceID),
		)
	}
}

// Shutdown stops accepting entries and waits for the queue to drain.
// LogAsync must not be called afterwards. Repeated calls are no-ops.
func (s *AuditService) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.queue)
		select {
		case <-s.stopped:
		case <-time.After(auditDrainTimeout):
			s.log.Warn("audit drain timed out", zap.Int("pending", len(s.queue)))
		}
	})
}

func (s *AuditService) run() {
	defer close(s.stopped)
	for rec := range s.queue {
		s.persist(rec)
	}
}

func (s *AuditService) persist(rec *domain.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, rec); err != nil {
		s.log.Error("audit write failed",
			zap.Error(err),
			zap.String("audit_id", rec.ID.String()),
			zap.String("resource_type", rec.ResourceType),
		)
		return
	}
	s.metrics.AuditEntriesTotal.Inc()
}
