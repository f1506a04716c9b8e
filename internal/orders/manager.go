package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
	"github.com/ariefcatur/go-shop-core/internal/events"
	"github.com/ariefcatur/go-shop-core/internal/format"
	"github.com/ariefcatur/go-shop-core/internal/lockx"
	"github.com/ariefcatur/go-shop-core/internal/validation"
)

// ReservationPolicy decides what CreateOrder does when one of the items
// cannot be reserved.
type ReservationPolicy int

const (
	// PolicyCompensate reserves every item before the order is written and
	// releases earlier reservations when a later one fails.
	PolicyCompensate ReservationPolicy = iota
	// PolicyLenient keeps the order even when some items cannot be
	// reserved: shortfalls are logged and the line is stored with
	// Reserved=0, so a later cancel gives back only what was taken.
	PolicyLenient
)

func ParsePolicy(s string) (ReservationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compensate":
		return PolicyCompensate, nil
	case "lenient":
		return PolicyLenient, nil
	}
	return PolicyCompensate, fmt.Errorf("unknown reservation policy %q", s)
}

func (p ReservationPolicy) String() string {
	if p == PolicyLenient {
		return "lenient"
	}
	return "compensate"
}

const DefaultListLimit = 20

// Manager owns order records and their status. Stock moves only through the
// Ledger.
type Manager struct {
	store     Store
	ledger    Ledger
	users     UserDirectory
	publisher events.Publisher
	producer  string
	policy    ReservationPolicy
	locks     *lockx.Striped
	log       *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Manager)

func WithPolicy(p ReservationPolicy) Option { return func(m *Manager) { m.policy = p } }

// WithPublisher enables lifecycle events; producer is stamped on each envelope.
func WithPublisher(p events.Publisher, producer string) Option {
	return func(m *Manager) {
		m.publisher = p
		m.producer = producer
	}
}

func WithLogger(log *zap.Logger) Option { return func(m *Manager) { m.log = log } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(store Store, ledger Ledger, users UserDirectory, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ledger: ledger,
		users:  users,
		locks:  lockx.NewStriped(lockx.DefaultStripes),
		log:    zap.NewNop(),
		tracer: otel.Tracer("github.com/ariefcatur/go-shop-core/internal/orders"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func errOrderNotFound(id string) error {
	return apperr.Newf(apperr.KindNotFound, "ORDER_NOT_FOUND", "order %s not found", id)
}

func invalidItems(format string, args ...any) error {
	return apperr.Newf(apperr.KindValidation, "INVALID_ITEMS", format, args...)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateOrder validates the checkout request, writes the order at
// StatusCreated and reserves stock for every item according to the policy.
// Validation failures leave no trace in either store.
func (m *Manager) CreateOrder(ctx context.Context, userID string, items []ItemInput, currency string) (o Order, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.create", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("order.items", len(items)),
		attribute.String("order.policy", m.policy.String()),
	))
	defer func() { finish(span, err) }()

	user, err := m.users.FindUserByID(ctx, userID)
	if err != nil {
		return Order{}, fmt.Errorf("find user %s: %w", userID, err)
	}
	if user == nil {
		return Order{}, apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "user does not exist")
	}
	if !user.Active {
		return Order{}, apperr.New(apperr.KindForbidden, "USER_INACTIVE", "user account is inactive")
	}
	if !validation.IsValidCurrency(currency) {
		return Order{}, apperr.Newf(apperr.KindValidation, "BAD_CURRENCY", "unsupported currency %q", currency)
	}
	if err := m.validateItems(ctx, items); err != nil {
		return Order{}, err
	}

	now := m.now()
	o = Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     make([]OrderItem, 0, len(items)),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, in := range items {
		o.Items = append(o.Items, newItem(in))
	}
	o.Total = SumItems(o.Items)
	span.SetAttributes(attribute.String("order.id", o.ID))

	switch m.policy {
	case PolicyLenient:
		m.reserveAvailable(ctx, o.ID, o.Items)
	default:
		if err := m.reserveAll(ctx, o.ID, o.Items); err != nil {
			return Order{}, err
		}
	}
	if err := m.store.Put(ctx, o); err != nil {
		m.releaseItems(ctx, o.ID, o.Items)
		return Order{}, fmt.Errorf("save order %s: %w", o.ID, err)
	}

	m.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("currency", o.Currency))
	m.publishCreated(ctx, o)
	return o.Clone(), nil
}

func (m *Manager) validateItems(ctx context.Context, items []ItemInput) error {
	if len(items) == 0 {
		return invalidItems("no items")
	}
	for _, it := range items {
		if !validation.IsValidQuantity(it.Quantity) {
			return invalidItems("invalid quantity %d for product %s", it.Quantity, it.ProductID)
		}
		if !validation.IsValidAmount(it.Price) {
			return invalidItems("invalid price %s for product %s", it.Price.String(), it.ProductID)
		}
		p, err := m.ledger.FindByID(ctx, it.ProductID)
		if err != nil {
			return fmt.Errorf("find product %s: %w", it.ProductID, err)
		}
		if p == nil {
			return invalidItems("product %s not found", it.ProductID)
		}
	}
	return nil
}

// reserveAll is all-or-nothing: on failure every earlier reservation is
// released before the error is returned. Reserved is set on each line taken.
func (m *Manager) reserveAll(ctx context.Context, orderID string, items []OrderItem) error {
	for i := range items {
		if _, err := m.ledger.Reserve(ctx, items[i].ProductID, items[i].Quantity); err != nil {
			m.releaseItems(ctx, orderID, items[:i])
			return err
		}
		items[i].Reserved = items[i].Quantity
	}
	return nil
}

// reserveAvailable reserves what it can and leaves Reserved=0 on lines the
// ledger refused.
func (m *Manager) reserveAvailable(ctx context.Context, orderID string, items []OrderItem) {
	for i := range items {
		it := &items[i]
		if _, err := m.ledger.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			m.log.Warn("reservation skipped",
				zap.String("order_id", orderID),
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err))
			continue
		}
		it.Reserved = it.Quantity
	}
}

// releaseItems gives back each line's Reserved units in reverse order. A
// failed release is logged; it can only happen when the product disappeared
// meanwhile.
func (m *Manager) releaseItems(ctx context.Context, orderID string, items []OrderItem) {
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if it.Reserved <= 0 {
			continue
		}
		if _, err := m.ledger.Release(ctx, it.ProductID, it.Reserved); err != nil {
			m.log.Error("stock release failed",
				zap.String("order_id", orderID),
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Reserved),
				zap.Error(err))
		}
	}
}

// transition moves the order to `to` inside the order's critical section.
// guard runs before the table check; onCommit runs after the new status is
// stored, still inside the critical section.
func (m *Manager) transition(ctx context.Context, orderID string, to Status, guard func(Order) error, onCommit func(Order)) (Order, Status, error) {
	var (
		updated Order
		from    Status
	)
	err := m.locks.Do(orderID, func() error {
		o, err := m.store.Get(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order %s: %w", orderID, err)
		}
		if o == nil {
			return errOrderNotFound(orderID)
		}
		if guard != nil {
			if err := guard(*o); err != nil {
				return err
			}
		}
		from = o.Status
		if from.Terminal() {
			return apperr.Newf(apperr.KindInvalidTransition, "INVALID_TRANSITION",
				"order %s is already %s", orderID, from)
		}
		if !CanTransition(from, to) {
			return apperr.Newf(apperr.KindInvalidTransition, "INVALID_TRANSITION",
				"cannot move order %s from %s to %s", orderID, from, to)
		}

		now := m.now()
		if sw, ok := m.store.(StatusSwapper); ok {
			swapped, err := sw.SwapStatus(ctx, orderID, from, to, now)
			if err != nil {
				return fmt.Errorf("update order %s status: %w", orderID, err)
			}
			if !swapped {
				return apperr.Newf(apperr.KindInvalidTransition, "INVALID_TRANSITION",
					"order %s is no longer %s", orderID, from)
			}
			o.Status = to
			o.UpdatedAt = now
		} else {
			o.Status = to
			o.UpdatedAt = now
			if err := m.store.Put(ctx, *o); err != nil {
				return fmt.Errorf("save order %s: %w", orderID, err)
			}
		}

		updated = *o
		if onCommit != nil {
			onCommit(updated)
		}
		return nil
	})
	if err != nil {
		return Order{}, "", err
	}
	return updated, from, nil
}

// CancelOrder cancels an order owned by userID and releases its stock.
func (m *Manager) CancelOrder(ctx context.Context, orderID, userID string) (o Order, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.cancel", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("user.id", userID),
	))
	defer func() { finish(span, err) }()

	owner := func(o Order) error {
		if o.UserID != userID {
			return apperr.New(apperr.KindForbidden, "FORBIDDEN", "not your order")
		}
		return nil
	}
	release := func(o Order) { m.releaseItems(ctx, o.ID, o.Items) }

	o, from, err := m.transition(ctx, orderID, StatusCancelled, owner, release)
	if err != nil {
		return Order{}, err
	}
	m.publishStatus(ctx, o, from, "")
	return o, nil
}

// SubmitOrder moves a non-empty order from created to pending.
func (m *Manager) SubmitOrder(ctx context.Context, orderID string) (o Order, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.submit", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { finish(span, err) }()

	hasItems := func(o Order) error {
		if len(o.Items) == 0 {
			return apperr.New(apperr.KindValidation, "NO_ITEMS", "order has no items")
		}
		return nil
	}
	o, from, err := m.transition(ctx, orderID, StatusPending, hasItems, nil)
	if err != nil {
		return Order{}, err
	}
	m.publishStatus(ctx, o, from, "")
	return o, nil
}

type Refund struct {
	OrderID  string          `json:"order_id"`
	Refunded decimal.Decimal `json:"refunded"`
	Currency string          `json:"currency"`
	Reason   string          `json:"reason"`
}

// ProcessRefund returns a delivered order, restocks its items and reports
// the recomputed total.
func (m *Manager) ProcessRefund(ctx context.Context, orderID, reason string) (r Refund, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.refund", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { finish(span, err) }()

	release := func(o Order) { m.releaseItems(ctx, o.ID, o.Items) }
	o, from, err := m.transition(ctx, orderID, StatusReturned, nil, release)
	if err != nil {
		return Refund{}, err
	}
	m.publishStatus(ctx, o, from, reason)
	return Refund{
		OrderID:  o.ID,
		Refunded: SumItems(o.Items),
		Currency: o.Currency,
		Reason:   reason,
	}, nil
}

// fulfilment moves that touch neither ownership nor stock
var advanceable = map[Status]bool{
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
}

// AdvanceOrder drives fulfilment (processing, shipped, delivered).
// Cancellation and returns have their own operations.
func (m *Manager) AdvanceOrder(ctx context.Context, orderID string, to Status) (o Order, err error) {
	ctx, span := m.tracer.Start(ctx, "orders.advance", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.to", string(to)),
	))
	defer func() { finish(span, err) }()

	if !to.Valid() || !advanceable[to] {
		return Order{}, apperr.Newf(apperr.KindValidation, "UNSUPPORTED_STATUS",
			"status %q cannot be set directly", to)
	}
	o, from, err := m.transition(ctx, orderID, to, nil, nil)
	if err != nil {
		return Order{}, err
	}
	m.publishStatus(ctx, o, from, "")
	return o, nil
}

type Details struct {
	Order   Order           `json:"order"`
	Total   decimal.Decimal `json:"total"`
	Summary string          `json:"summary"`
}

func (m *Manager) GetOrderDetails(ctx context.Context, orderID string) (Details, error) {
	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return Details{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o == nil {
		return Details{}, errOrderNotFound(orderID)
	}
	total := SumItems(o.Items)
	return Details{
		Order:   *o,
		Total:   total,
		Summary: format.OrderSummary(o.ID, total, o.Currency, len(o.Items)),
	}, nil
}

func (m *Manager) ListUserOrders(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return m.store.ListByUser(ctx, userID, limit)
}

func (m *Manager) publishCreated(ctx context.Context, o Order) {
	lines := make([]events.ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, events.ItemLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price.StringFixed(2)})
	}
	m.publish(ctx, events.TopicOrderCreated, events.EventOrderCreated, o.ID, events.OrderCreatedPayload{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Items:    lines,
		Total:    o.Total.StringFixed(2),
		Currency: o.Currency,
	})
}

func (m *Manager) publishStatus(ctx context.Context, o Order, from Status, reason string) {
	m.log.Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)))
	m.publish(ctx, events.TopicOrderStatusChanged, events.EventOrderStatusChanged, o.ID, events.OrderStatusChangedPayload{
		OrderID: o.ID,
		UserID:  o.UserID,
		From:    string(from),
		To:      string(o.Status),
		Reason:  reason,
	})
}

func (m *Manager) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	if m.publisher == nil {
		return
	}
	ev, err := events.New(eventType, m.producer, orderID, payload)
	if err != nil {
		m.log.Error("build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	if err := m.publisher.Publish(ctx, topic, ev); err != nil {
		m.log.Warn("publish event failed",
			zap.String("event_type", eventType),
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}
