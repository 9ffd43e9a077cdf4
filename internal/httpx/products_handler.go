package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductsHandler struct {
	Catalog catalog.Lister
	Log     *slog.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx, f)
	if err != nil {
		writeError(w, r, logger(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{Query: q.Get("q")}

	var err error
	if f.Sort, err = catalog.ParseSort(q.Get("sort")); err != nil {
		return f, err
	}
	if f.MinPrice, err = decimalParam(q.Get("min_price")); err != nil {
		return f, err
	}
	if f.MaxPrice, err = decimalParam(q.Get("max_price")); err != nil {
		return f, err
	}
	if v := q.Get("in_stock"); v != "" {
		if f.InStock, err = strconv.ParseBool(v); err != nil {
			return f, apperr.InvalidArgument("in_stock: %q", v)
		}
	}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return f, err
	}
	return f.Normalize(), nil
}

func decimalParam(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, apperr.InvalidArgument("bad price %q", s)
	}
	return &d, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, apperr.InvalidArgument("bad paging value %q", s)
	}
	return i, nil
}
