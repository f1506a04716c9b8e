package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-core/internal/events"
	"github.com/ariefcatur/go-shop-core/internal/inventory"
	"github.com/ariefcatur/go-shop-core/internal/memstore"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
)

type memorySink struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (s *memorySink) Send(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

type capture struct {
	topics []string
	evs    []events.Envelope
}

func (c *capture) Publish(_ context.Context, topic string, ev events.Envelope) error {
	c.topics = append(c.topics, topic)
	c.evs = append(c.evs, ev)
	return nil
}

func mustEvent(t *testing.T, typ, corr string, payload any) events.Envelope {
	t.Helper()
	ev, err := events.New(typ, "test", corr, payload)
	require.NoError(t, err)
	return ev
}

func TestRender_LowStock(t *testing.T) {
	ev := mustEvent(t, events.EventStockLow, "p1", events.StockLowPayload{ProductID: "p1", SKU: "WID-1", Name: "Widget", Stock: 4})

	n, ok, err := Render(ev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Low stock: Widget", n.Subject)
	assert.Equal(t, "Product WID-1 has only 4 units left.", n.Body)
	assert.Equal(t, SystemRecipient, n.UserID)
	assert.Equal(t, 1, n.Priority)
	assert.Equal(t, ev.EventID, n.EventID)
}

func TestRender_OrderEvents(t *testing.T) {
	created := mustEvent(t, events.EventOrderCreated, "o1", events.OrderCreatedPayload{
		OrderID: "o1", UserID: "u1", Total: "1234.50", Currency: "USD",
		Items: []events.ItemLine{{ProductID: "p1", Quantity: 1, Price: "1234.50"}},
	})
	n, ok, err := Render(created)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, "Order #o1: 1 items, $1,234.50", n.Body)

	returned := mustEvent(t, events.EventOrderStatusChanged, "o1", events.OrderStatusChangedPayload{
		OrderID: "o1", UserID: "u1", From: "delivered", To: "returned", Reason: "damaged",
	})
	n, ok, err = Render(returned)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Order o1 is returned", n.Subject)
	assert.Contains(t, n.Body, "damaged")

	_, ok, err = Render(events.Envelope{EventID: "x", EventType: "Unknown"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDispatcher_DedupsByEventID(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	d := NewDispatcher(sink, redisx.NewDedup(redisx.NewMemory(), "notifier", 0), nil)
	ev := mustEvent(t, events.EventStockLow, "p1", events.StockLowPayload{ProductID: "p1", SKU: "WID-1", Name: "Widget", Stock: 2})

	require.NoError(t, d.Handle(ctx, events.TopicStockLow, ev))
	require.NoError(t, d.Handle(ctx, events.TopicStockLow, ev))
	assert.Len(t, sink.sent, 1)
}

func TestDispatcher_SinkFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{err: errors.New("smtp down")}
	d := NewDispatcher(sink, redisx.NewDedup(redisx.NewMemory(), "notifier", 0), nil)
	ev := mustEvent(t, events.EventStockLow, "p1", events.StockLowPayload{ProductID: "p1", SKU: "WID-1", Name: "Widget", Stock: 2})

	require.Error(t, d.Handle(ctx, events.TopicStockLow, ev))

	sink.err = nil
	require.NoError(t, d.Handle(ctx, events.TopicStockLow, ev))
	assert.Len(t, sink.sent, 1)
}

func TestDispatcher_BadPayloadIsDropped(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(sink, nil, nil)
	ev := events.Envelope{EventID: "e1", EventType: events.EventStockLow, Payload: []byte(`"oops"`)}

	assert.NoError(t, d.Handle(context.Background(), events.TopicStockLow, ev))
	assert.Empty(t, sink.sent)
}

func TestStockAlerts_OncePerWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := redisx.NewMemory()
	mem.SetClock(func() time.Time { return now })
	pub := &capture{}
	alerts := NewStockAlerts(mem, pub, "test", time.Hour)
	p := inventory.Product{ID: "p1", SKU: "WID-1", Name: "Widget", Stock: 9}

	require.NoError(t, alerts.NotifyLowStock(ctx, p))
	require.NoError(t, alerts.NotifyLowStock(ctx, p))
	require.Len(t, pub.evs, 1)
	assert.Equal(t, events.TopicStockLow, pub.topics[0])

	now = now.Add(time.Hour)
	require.NoError(t, alerts.NotifyLowStock(ctx, p))
	assert.Len(t, pub.evs, 2)
}

// Reserve through a ledger wired to StockAlerts and a Local dispatcher: the
// reorder notification reaches the sink.
func TestLedgerAlertReachesSink(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	local := Local{D: NewDispatcher(sink, nil, nil)}
	ledger := inventory.NewLedger(memstore.NewProducts(),
		inventory.WithNotifier(NewStockAlerts(redisx.NewMemory(), local, "test", 0)))

	p, err := ledger.AddProduct(ctx, inventory.NewProduct{SKU: "WID-1", Name: "Widget", Price: decimal.NewFromInt(3), Stock: 12})
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, p.ID, 3)
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, p.ID, 1)
	require.NoError(t, err)

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "Product WID-1 has only 9 units left.", sink.sent[0].Body)
}
