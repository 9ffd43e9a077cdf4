package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type CheckoutHandler struct {
	Checkout *checkout.Service
	Log      *slog.Logger
}

type planReq struct {
	AddressID      string `json:"address_id"`
	DeliveryMethod string `json:"delivery_method"`
	PaymentMethod  string `json:"payment_method"`
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/checkout/plan", h.plan)
	r.Post("/checkout/{draftID}/commit", h.commit)
}

func (h *CheckoutHandler) plan(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req planReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := h.Checkout.Plan(ctx, uid, req.AddressID, req.DeliveryMethod, req.PaymentMethod)
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *CheckoutHandler) commit(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	r = traced(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Checkout.Commit(ctx, uid, chi.URLParam(r, "draftID"))
	if err != nil {
		if res.OrderID != "" {
			// the order exists but its final status was not saved
			logger(h.Log).Error("commit left order pending", "order_id", res.OrderID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "order saved, status update failed", "order_id": res.OrderID})
			return
		}
		writeError(w, r, logger(h.Log), err)
		return
	}

	code := http.StatusCreated
	switch {
	case res.Idempotent:
		code = http.StatusOK
	case res.Status == orders.StatusStockUpdateFailed:
		code = http.StatusAccepted
	}
	writeJSON(w, code, res)
}
