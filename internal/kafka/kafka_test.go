package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/goleak"

	"github.com/ariefcatur/go-shop-core/internal/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 4, nil)
	p.Start()

	ev, err := events.New(events.EventOrderCreated, "test", "order-1", events.OrderCreatedPayload{OrderID: "order-1"})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Publish(context.Background(), events.TopicOrderCreated, ev))
	}
	p.Close()
	p.Close()
	p.WaitClosed()

	assert.True(t, w.closed)
	require.Len(t, w.msgs, 10)
	m := w.msgs[0]
	assert.Equal(t, events.TopicOrderCreated, m.Topic)
	assert.Equal(t, []byte("order-1"), m.Key)
	assert.Equal(t, events.EventOrderCreated, Header(m, HeaderEventType))
	assert.Equal(t, ev.EventID, Header(m, HeaderEventID))

	decoded, err := DecodeEnvelope(m)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, decoded.EventID)

	err = p.Send(context.Background(), "t", nil, []byte("x"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_SendHonoursContextWhenFull(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 1, nil)
	// loop not started: the inbox fills up
	require.NoError(t, p.Send(context.Background(), "t", nil, []byte("1")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Send(ctx, "t", nil, []byte("2"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Start()
	p.Close()
	p.WaitClosed()
	assert.Len(t, w.msgs, 1)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	fetchErr  error
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	err := r.fetchErr
	r.mu.Unlock()
	if err != nil {
		return kafka.Message{}, err
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	r := &fakeReader{}
	for i := int64(0); i < 6; i++ {
		r.queue = append(r.queue, kafka.Message{Topic: "t", Offset: i})
	}
	c := newConsumer(r, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu   sync.Mutex
		seen int
	)
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			mu.Lock()
			seen++
			mu.Unlock()
			if m.Offset == 3 {
				return errors.New("boom")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(r.commits()) == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.NotContains(t, r.commits(), int64(3))
	assert.Equal(t, 6, seen)
	assert.True(t, r.closed)
}

func TestConsumer_ReturnsReaderError(t *testing.T) {
	r := &fakeReader{fetchErr: errors.New("group coordinator gone")}
	c := newConsumer(r, 2, nil)

	err := c.Start(context.Background(), func(context.Context, kafka.Message) error { return nil })
	assert.EqualError(t, err, "group coordinator gone")
}

func TestEnvelopes_SkipsGarbage(t *testing.T) {
	var got []events.Envelope
	h := Envelopes(func(_ context.Context, topic string, ev events.Envelope) error {
		got = append(got, ev)
		return nil
	}, nil)

	require.NoError(t, h(context.Background(), kafka.Message{Topic: "t", Value: []byte("not json")}))
	require.NoError(t, h(context.Background(), kafka.Message{Topic: "t", Value: []byte(`{"payload":{}}`)}))
	assert.Empty(t, got)

	ev, err := events.New(events.EventStockLow, "test", "p1", events.StockLowPayload{ProductID: "p1", Stock: 3})
	require.NoError(t, err)
	value, _, err := EncodeEnvelope(ev)
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), kafka.Message{Topic: events.TopicStockLow, Value: value}))
	require.Len(t, got, 1)
	assert.Equal(t, ev.EventID, got[0].EventID)
}

func TestTraceContextRoundTripsThroughHeaders(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled, Remote: true,
	}))

	headers := injectTrace(ctx, nil)
	require.NotEmpty(t, headers)

	got := trace.SpanContextFromContext(extractTrace(context.Background(), headers))
	assert.Equal(t, tid, got.TraceID())
	assert.Equal(t, sid, got.SpanID())
}
