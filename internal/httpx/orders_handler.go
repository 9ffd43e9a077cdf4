package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Orders *orders.Service
	Log    *slog.Logger
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Patch("/orders/{id}/status", h.advanceStatus)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListOrders(ctx, uid)
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus answers from the status cache, falling back to the database.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	st, err := h.Orders.OrderStatus(ctx, uid, id)
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "status": string(st)})
}

// advanceStatus is the operator endpoint; authorization sits in front of
// this service.
func (h *OrdersHandler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.AdvanceStatus(ctx, chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
