package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ariefcatur/go-shop-core/internal/events"
)

const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderTraceID   = "trace_id"
)

// EncodeEnvelope returns the JSON value plus routing headers, so consumers
// can filter without decoding the body.
func EncodeEnvelope(ev events.Envelope) ([]byte, []kafka.Header, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("encode envelope %s: %w", ev.EventType, err)
	}
	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(ev.EventType)},
		{Key: HeaderEventID, Value: []byte(ev.EventID)},
	}
	if ev.TraceID != "" {
		headers = append(headers, kafka.Header{Key: HeaderTraceID, Value: []byte(ev.TraceID)})
	}
	return b, headers, nil
}

func DecodeEnvelope(m kafka.Message) (events.Envelope, error) {
	var ev events.Envelope
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return ev, fmt.Errorf("decode envelope from %s@%d: %w", m.Topic, m.Offset, err)
	}
	if ev.EventID == "" || ev.EventType == "" {
		return ev, fmt.Errorf("envelope from %s@%d missing id or type", m.Topic, m.Offset)
	}
	return ev, nil
}

// Header returns the value of header key, or "".
func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// injectTrace appends the propagator's fields for ctx to headers.
func injectTrace(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}
	return headers
}

// extractTrace returns ctx carrying the remote span context found in headers.
func extractTrace(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
