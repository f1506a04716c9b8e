package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/inventory"
)

type ProductsHandler struct {
	Ledger *inventory.Ledger
	Log    *zap.Logger
}

type AdjustReq struct {
	Delta int `json:"delta" validate:"ne=0"`
}

type ActiveReq struct {
	Active *bool `json:"active" validate:"required"`
}

type SetStockReq struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

type SyncReq struct {
	Items []inventory.StockCount `json:"items" validate:"required"`
}

type ReorderReq struct {
	Quantity int `json:"quantity" validate:"gt=0,lte=10000"`
}

type stockResp struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Post("/products", h.addProduct)
	r.Get("/products/sku/{sku}", h.getBySKU)
	r.Get("/products/{id}", h.getProduct)
	r.Delete("/products/{id}", h.removeProduct)
	r.Put("/products/{id}/active", h.setActive)
	r.Post("/products/{id}/adjust", h.adjust)
	r.Put("/products/{id}/stock", h.setStock)
	r.Post("/products/{id}/reorder", h.reorder)
	r.Get("/products/{id}/availability", h.availability)
	r.Get("/products/{id}/stock-level", h.stockLevel)
	r.Get("/inventory/low-stock", h.lowStock)
	r.Get("/inventory/report", h.report)
	r.Post("/inventory/sync", h.sync)
	r.Get("/inventory/reorder-check", h.reorderCheck)
}

func (h *ProductsHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h *ProductsHandler) writeProduct(w http.ResponseWriter, id string, p *inventory.Product, err error) {
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if p == nil {
		writeError(w, h.log(), inventory.ErrProductNotFound(id))
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	id := chi.URLParam(r, "id")
	p, err := h.Ledger.FindByID(ctx, id)
	h.writeProduct(w, id, p, err)
}

func (h *ProductsHandler) getBySKU(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	sku := chi.URLParam(r, "sku")
	p, err := h.Ledger.FindBySKU(ctx, sku)
	h.writeProduct(w, "sku "+sku, p, err)
}

func (h *ProductsHandler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req inventory.NewProduct
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	p, err := h.Ledger.AddProduct(ctx, req)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *ProductsHandler) removeProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()
	if err := h.Ledger.RemoveProduct(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductsHandler) setActive(w http.ResponseWriter, r *http.Request) {
	var req ActiveReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.Ledger.SetActive(ctx, id, *req.Active); err != nil {
		writeError(w, h.log(), err)
		return
	}
	p, err := h.Ledger.FindByID(ctx, id)
	h.writeProduct(w, id, p, err)
}

func (h *ProductsHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	stock, err := h.Ledger.Adjust(ctx, id, req.Delta)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, stockResp{ProductID: id, Stock: stock})
}

func (h *ProductsHandler) availability(w http.ResponseWriter, r *http.Request) {
	qty, ok := queryInt(w, r, "qty", 1)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	a, err := h.Ledger.CheckAvailability(ctx, chi.URLParam(r, "id"), qty)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, a)
}

func (h *ProductsHandler) stockLevel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	s, err := h.Ledger.StockLevel(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *ProductsHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, ok := queryInt(w, r, "threshold", inventory.LowStockThreshold)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	list, err := h.Ledger.ListLowStock(ctx, threshold)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if list == nil {
		list = []inventory.Product{}
	}
	writeData(w, http.StatusOK, list)
}

func (h *ProductsHandler) report(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	rep, err := h.Ledger.Report(ctx)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, rep)
}

func (h *ProductsHandler) setStock(w http.ResponseWriter, r *http.Request) {
	var req SetStockReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	stock, err := h.Ledger.SetStock(ctx, id, *req.Stock)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, stockResp{ProductID: id, Stock: stock})
}

// sync always answers 200; failed lines are listed in the result.
func (h *ProductsHandler) sync(w http.ResponseWriter, r *http.Request) {
	var req SyncReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	writeData(w, http.StatusOK, h.Ledger.SyncStock(ctx, req.Items))
}

func (h *ProductsHandler) reorderCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	rep, err := h.Ledger.ReorderCheck(ctx)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusOK, rep)
}

func (h *ProductsHandler) reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	ro, err := h.Ledger.ProcessReorder(ctx, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeData(w, http.StatusAccepted, ro)
}
