package httpx

import (
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Carts *cart.Service
	Log   *slog.Logger
}

type lineReq struct {
	ProductID string `json:"product_id"`
	Version   string `json:"version"`
	Quantity  *int   `json:"quantity"`
}

func (l lineReq) key() cart.LineKey { return cart.LineKey{ProductID: l.ProductID, Label: l.Version} }

// quantity returns def when the field was left out; an explicit 0 stays 0.
func (l lineReq) quantity(def int) int {
	if l.Quantity == nil {
		return def
	}
	return *l.Quantity
}

type cartResp struct {
	UserID   string      `json:"user_id"`
	Revision int64       `json:"revision"`
	Lines    []cart.Line `json:"lines"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/lines", h.addLine)
	r.Patch("/cart/lines", h.setQuantity)
	r.Post("/cart/lines/toggle", h.toggle)
	r.Delete("/cart/lines", h.removeLine)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	c, err := h.Carts.GetCart(r.Context(), uid)
	h.respond(w, r, c, err)
}

func (h *CartHandler) addLine(w http.ResponseWriter, r *http.Request) {
	h.withLine(w, r, func(uid string, req lineReq) (*cart.Cart, error) {
		return h.Carts.AddToCart(r.Context(), uid, req.key(), req.quantity(1))
	})
}

func (h *CartHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	h.withLine(w, r, func(uid string, req lineReq) (*cart.Cart, error) {
		return h.Carts.UpdateQuantity(r.Context(), uid, req.key(), req.quantity(0))
	})
}

func (h *CartHandler) toggle(w http.ResponseWriter, r *http.Request) {
	h.withLine(w, r, func(uid string, req lineReq) (*cart.Cart, error) {
		return h.Carts.ToggleSelection(r.Context(), uid, req.key())
	})
}

func (h *CartHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	h.withLine(w, r, func(uid string, req lineReq) (*cart.Cart, error) {
		return h.Carts.RemoveFromCart(r.Context(), uid, req.key())
	})
}

func (h *CartHandler) withLine(w http.ResponseWriter, r *http.Request, fn func(string, lineReq) (*cart.Cart, error)) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req lineReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	c, err := fn(uid, req)
	h.respond(w, r, c, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, c *cart.Cart, err error) {
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, cartResp{UserID: c.UserID, Revision: c.Revision, Lines: c.Lines()})
}
