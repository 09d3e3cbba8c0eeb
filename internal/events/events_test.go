package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []*Entry
}

func (f *fakeStore) Enqueue(_ context.Context, e *Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) FetchPending(_ context.Context, limit int) ([]*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Entry
	for _, e := range f.entries {
		if e.DeliveredAt == nil && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			e.DeliveredAt = &at
		}
	}
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			e.Attempts++
		}
	}
	return nil
}

type recorder struct {
	mu     sync.Mutex
	seen   []string
	failOn map[string]bool
}

func (r *recorder) Handle(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn[e.Type] {
		return errors.New("broker unavailable")
	}
	r.seen = append(r.seen, e.Type)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func seed(t *testing.T, st *fakeStore, types ...string) {
	t.Helper()
	for _, typ := range types {
		e, err := NewEntry(typ, uuid.New(), map[string]string{"type": typ})
		require.NoError(t, err)
		require.NoError(t, st.Enqueue(context.Background(), e))
	}
}

func newTestDeliverer(st Store, h Handler) (*Deliverer, *metrics.Collector) {
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	return NewDeliverer(st, h, m, zap.NewNop()), m
}

func TestDrainDeliversInOrder(t *testing.T) {
	st := &fakeStore{}
	seed(t, st, TypeAppointmentBooked, TypeAppointmentMoved, TypeAppointmentCancelled)
	rec := &recorder{}
	d, m := newTestDeliverer(st, rec)

	assert.Equal(t, 3, d.Drain(context.Background()))
	assert.Equal(t, []string{TypeAppointmentBooked, TypeAppointmentMoved, TypeAppointmentCancelled}, rec.types())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OutboxDeliveredTotal))

	assert.Zero(t, d.Drain(context.Background()), "delivered entries are not sent twice")
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	st := &fakeStore{}
	seed(t, st, TypeVisitCreated, TypePatientDischarged, TypeAppointmentBooked)
	rec := &recorder{failOn: map[string]bool{TypePatientDischarged: true}}
	d, m := newTestDeliverer(st, rec)

	assert.Equal(t, 1, d.Drain(context.Background()))
	assert.Equal(t, []string{TypeVisitCreated}, rec.types())
	assert.Equal(t, 1, st.entries[1].Attempts)
	assert.Nil(t, st.entries[2].DeliveredAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxFailedTotal))

	rec.failOn = nil
	assert.Equal(t, 2, d.Drain(context.Background()))
	assert.Equal(t, []string{TypeVisitCreated, TypePatientDischarged, TypeAppointmentBooked}, rec.types())
}

func TestDrainRespectsBatchSize(t *testing.T) {
	st := &fakeStore{}
	seed(t, st, TypeVisitCreated, TypeVisitCreated, TypeVisitCreated)
	d, _ := newTestDeliverer(st, &recorder{})
	d.WithBatchSize(2)

	assert.Equal(t, 2, d.Drain(context.Background()))
	assert.Equal(t, 1, d.Drain(context.Background()))
}

func TestStartStopsOnCancel(t *testing.T) {
	st := &fakeStore{}
	seed(t, st, TypeAppointmentBooked)
	rec := &recorder{}
	d, _ := newTestDeliverer(st, rec)
	d.WithInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(rec.types()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverer did not stop")
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublisherKeysByAggregate(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w)
	e, err := NewEntry(TypeAppointmentBooked, uuid.New(), map[string]int{"start": 540})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), e))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, e.AggregateID.String(), string(msg.Key))
	assert.JSONEq(t, `{"start":540}`, string(msg.Value))
	assert.Equal(t, []kafka.Header{
		{Key: "event_id", Value: []byte(e.ID.String())},
		{Key: "event_type", Value: []byte(TypeAppointmentBooked)},
	}, msg.Headers)

	w.err = errors.New("leader not available")
	err = p.Handle(context.Background(), e)
	assert.ErrorContains(t, err, TypeAppointmentBooked)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	failing := HandlerFunc(func(context.Context, *Entry) error {
		calls++
		return errors.New("broker down")
	})
	b := NewBreaker(failing, BreakerSettings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())
	e, err := NewEntry(TypeVisitCreated, uuid.New(), struct{}{})
	require.NoError(t, err)

	assert.Error(t, b.Handle(context.Background(), e))
	assert.Error(t, b.Handle(context.Background(), e))
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err = b.Handle(context.Background(), e)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls, "open breaker must not call the broker")
}
