package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WrapsPayload(t *testing.T) {
	ev, err := New(EventOrderStatusChanged, "shop-api", "o1", OrderStatusChangedPayload{OrderID: "o1", From: "created", To: "cancelled"})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.EventVersion)
	assert.Equal(t, "o1", ev.CorrelationID)
	assert.False(t, ev.OccurredAt.IsZero())

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	var back Envelope
	require.NoError(t, json.Unmarshal(b, &back))

	p, err := Decode[OrderStatusChangedPayload](back)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", p.To)
}

func TestDecode_WrongShape(t *testing.T) {
	_, err := Decode[StockLowPayload](Envelope{EventType: EventStockLow, Payload: []byte(`[1,2]`)})
	assert.Error(t, err)
}
