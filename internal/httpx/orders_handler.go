package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	opTimeout = 5 * time.Second
)

type OrdersHandler struct {
	Orders *orders.Manager
	Idem   *redisx.Idempotency // nil = Idempotency-Key diabaikan
	Log    *zap.Logger
}

type CreateOrderReq struct {
	UserID   string             `json:"user_id" validate:"required"`
	Currency string             `json:"currency" validate:"required"`
	Items    []orders.ItemInput `json:"items"`
}

type CancelOrderReq struct {
	UserID string `json:"user_id" validate:"required"`
}

type RefundReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

type AdvanceReq struct {
	Status orders.Status `json:"status" validate:"required"`
}

type DiscountReq struct {
	Code string `json:"code" validate:"required"`
}

type ShippingReq struct {
	Destination string                `json:"destination" validate:"required"`
	Items       []orders.ShippingItem `json:"items" validate:"dive"`
}

type countResp struct {
	UserID string `json:"user_id,omitempty"`
	Count  int    `json:"count"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/count", h.countOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/submit", h.submitOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/refund", h.refundOrder)
	r.Post("/orders/{id}/status", h.advanceOrder)
	r.Post("/orders/{id}/discount", h.applyDiscount)
	r.Get("/users/{id}/orders", h.listUserOrders)
	r.Get("/users/{id}/orders/history", h.orderHistory)
	r.Post("/shipping/quote", h.quoteShipping)
}

func (h *OrdersHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	key := r.Header.Get(HeaderIdempotencyKey)
	if key == "" || h.Idem == nil {
		o, err := h.Orders.CreateOrder(ctx, req.UserID, req.Items, req.Currency)
		if err != nil {
			writeError(w, h.log(), err)
			return
		}
		writeData(w, http.StatusCreated, o)
		return
	}

	// Idempotency-Key per user: request yang sama mengembalikan order yang sama (24 jam)
	existingID, claimed, err := h.Idem.Claim(ctx, req.UserID, key)
	if errors.Is(err, redisx.ErrInFlight) {
		writeErrorCode(w, http.StatusConflict, "IDEMPOTENCY_IN_FLIGHT", err.Error())
		return
	}
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if !claimed {
		d, err := h.Orders.GetOrderDetails(ctx, existingID)
		if err != nil {
			writeError(w, h.log(), err)
			return
		}
		w.Header().Set(HeaderReplayed, "true")
		writeData(w, http.StatusOK, d.Order)
		return
	}

	o, err := h.Orders.CreateOrder(ctx, req.UserID, req.Items, req.Currency)
	if err != nil {
		if aerr := h.Idem.Abandon(context.WithoutCancel(ctx), req.UserID, key); aerr != nil {
			h.log().Warn("abandon idempotency key", zap.String("key", key), zap.Error(aerr))
		}
		writeError(w, h.log(), err)
		return
	}
	if err := h.Idem.Complete(context.WithoutCancel(ctx), req.UserID, key, o.ID); err != nil {
		h.log().Warn("store idempotency key", zap.String("key", key), zap.String("order_id", o.ID), zap.Error(err))
	}
	writeData(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	d, err := h.Orders.GetOrderDetails(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, d)
}

func (h *OrdersHandler) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	o, err := h.Orders.SubmitOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	o, err := h.Orders.CancelOrder(ctx, chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, o)
}

func (h *OrdersHandler) refundOrder(w http.ResponseWriter, r *http.Request) {
	var req RefundReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	res, err := h.Orders.ProcessRefund(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *OrdersHandler) advanceOrder(w http.ResponseWriter, r *http.Request) {
	var req AdvanceReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	o, err := h.Orders.AdvanceOrder(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, o)
}

func (h *OrdersHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	list, err := h.Orders.ListUserOrders(ctx, chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeData(w, http.StatusOK, list)
}

func (h *OrdersHandler) orderHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	hist, err := h.Orders.OrderHistory(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, hist)
}

// countOrders counts every order when user_id is absent.
func (h *OrdersHandler) countOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	userID := r.URL.Query().Get("user_id")
	n, err := h.Orders.CountOrders(ctx, userID)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, countResp{UserID: userID, Count: n})
}

func (h *OrdersHandler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	var req DiscountReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	d, err := h.Orders.ApplyDiscount(ctx, chi.URLParam(r, "id"), req.Code)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, d)
}

func (h *OrdersHandler) quoteShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	q, err := orders.QuoteShipping(req.Items, req.Destination)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, q)
}

// queryInt reads an optional integer query parameter; on a malformed value
// it writes a 400 and returns ok=false.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_QUERY", name+" must be an integer")
		return 0, false
	}
	return n, true
}
