// Package notify turns domain events into user-facing notifications.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/events"
	"github.com/ariefcatur/go-shop-core/internal/format"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
)

const (
	ChannelEmail = "email"
	ChannelPush  = "push"

	// SystemRecipient receives operational alerts such as reorder warnings.
	SystemRecipient = "system"

	maxSubject = 200
	maxBody    = 1000
)

type Notification struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Channel  string `json:"channel"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Priority int    `json:"priority"` // 1 paling tinggi
	EventID  string `json:"event_id"`
}

// Sink delivers a rendered notification.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the structured log.
type LogSink struct{ Log *zap.Logger }

func (s LogSink) Send(_ context.Context, n Notification) error {
	s.Log.Info("notification",
		zap.String("id", n.ID),
		zap.String("user_id", n.UserID),
		zap.String("channel", n.Channel),
		zap.Int("priority", n.Priority),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body),
		zap.String("event_id", n.EventID))
	return nil
}

// Dispatcher renders events and hands them to a Sink, at most once per
// event id when a dedup store is configured.
type Dispatcher struct {
	sink  Sink
	dedup *redisx.Dedup
	log   *zap.Logger
}

func NewDispatcher(sink Sink, dedup *redisx.Dedup, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{sink: sink, dedup: dedup, log: log}
}

// Handle matches kafka.EnvelopeHandler. Unknown event types are ignored.
func (d *Dispatcher) Handle(ctx context.Context, topic string, ev events.Envelope) error {
	n, ok, err := Render(ev)
	if err != nil {
		// payload rusak tidak akan pernah sukses; jangan di-retry
		d.log.Error("render notification", zap.String("event_id", ev.EventID), zap.String("topic", topic), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	if d.dedup != nil {
		first, err := d.dedup.First(ctx, ev.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", ev.EventID, err)
		}
		if !first {
			d.log.Debug("duplicate event skipped", zap.String("event_id", ev.EventID))
			return nil
		}
	}

	if err := d.sink.Send(ctx, n); err != nil {
		if d.dedup != nil {
			if ferr := d.dedup.Forget(ctx, ev.EventID); ferr != nil {
				d.log.Warn("dedup forget", zap.String("event_id", ev.EventID), zap.Error(ferr))
			}
		}
		return fmt.Errorf("send notification for %s: %w", ev.EventID, err)
	}
	return nil
}

// Render builds the notification for ev; ok is false for event types that
// do not notify anyone.
func Render(ev events.Envelope) (Notification, bool, error) {
	n := Notification{ID: uuid.NewString(), EventID: ev.EventID}
	switch ev.EventType {
	case events.EventStockLow:
		p, err := events.Decode[events.StockLowPayload](ev)
		if err != nil {
			return Notification{}, false, err
		}
		n.UserID = SystemRecipient
		n.Channel = ChannelEmail
		n.Priority = 1
		n.Subject = fmt.Sprintf("Low stock: %s", p.Name)
		n.Body = fmt.Sprintf("Product %s has only %d units left.", p.SKU, p.Stock)

	case events.EventOrderCreated:
		p, err := events.Decode[events.OrderCreatedPayload](ev)
		if err != nil {
			return Notification{}, false, err
		}
		total, err := decimal.NewFromString(p.Total)
		if err != nil {
			return Notification{}, false, fmt.Errorf("order %s total %q: %w", p.OrderID, p.Total, err)
		}
		n.UserID = p.UserID
		n.Channel = ChannelEmail
		n.Priority = 5
		n.Subject = fmt.Sprintf("Order %s received", p.OrderID)
		n.Body = format.OrderSummary(p.OrderID, total, p.Currency, len(p.Items))

	case events.EventOrderStatusChanged:
		p, err := events.Decode[events.OrderStatusChangedPayload](ev)
		if err != nil {
			return Notification{}, false, err
		}
		n.UserID = p.UserID
		n.Channel = ChannelPush
		n.Priority = 3
		n.Subject = fmt.Sprintf("Order %s is %s", p.OrderID, p.To)
		n.Body = statusMessage(p.To, p.Reason)

	default:
		return Notification{}, false, nil
	}
	n.Subject = format.Truncate(n.Subject, maxSubject)
	n.Body = format.Truncate(n.Body, maxBody)
	return n, true, nil
}

func statusMessage(status, reason string) string {
	switch status {
	case "pending":
		return "We have received your order and are preparing it."
	case "processing":
		return "Your order is being packed."
	case "shipped":
		return "Your order is on its way."
	case "delivered":
		return "Your order has been delivered."
	case "cancelled":
		return "Your order was cancelled and any reserved items were released."
	case "returned":
		if reason != "" {
			return "Your return was accepted (" + reason + "). A refund is on its way."
		}
		return "Your return was accepted. A refund is on its way."
	}
	return "Your order status changed to " + status + "."
}

// Local delivers events straight to a Dispatcher in-process. It stands in
// for Kafka when no brokers are configured.
type Local struct{ D *Dispatcher }

func (l Local) Publish(ctx context.Context, topic string, ev events.Envelope) error {
	return l.D.Handle(ctx, topic, ev)
}
