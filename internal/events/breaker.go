package events

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	Name string
	// Consecutive failures that open the breaker.
	MaxFailures uint32
	// How long the breaker stays open before letting one probe through.
	OpenTimeout time.Duration
}

// Breaker stops calling next while the broker keeps failing, so a broker
// outage costs one fast error per poll instead of a write timeout per entry.
type Breaker struct {
	next Handler
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreaker(next Handler, s BreakerSettings, log *zap.Logger) *Breaker {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("event breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Handle(ctx context.Context, e *Entry) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Handle(ctx, e)
	})
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
