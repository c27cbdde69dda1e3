package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/go-factures/httpx"
	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/services"
	"github.com/diewo77/go-factures/validation"
	"github.com/shopspring/decimal"
)

// CatalogHandler serves categories and products. The client routes only
// ever see available products.
type CatalogHandler struct {
	svc *services.CatalogService
}

func NewCatalogHandler(svc *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cats)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	cat, err := h.svc.GetCategory(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cat)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	cat, err := h.svc.CreateCategory(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cat)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	cat, err := h.svc.UpdateCategory(r.Context(), id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cat)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// productFilter reads ?q=, ?min= and ?max=.
func productFilter(r *http.Request, onlyAvailable bool) (services.ProductFilter, error) {
	q := r.URL.Query()
	f := services.ProductFilter{Query: strings.TrimSpace(q.Get("q")), OnlyAvailable: onlyAvailable}
	v := make(validation.Violations)
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min", &f.MinPrice}, {"max", &f.MaxPrice}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			v[p.name] = "invalid_value"
			continue
		}
		*p.dst = &d
	}
	if !v.Empty() {
		return f, apperr.Invalid(v)
	}
	return f, nil
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, onlyAvailable bool) {
	f, err := productFilter(r, onlyAvailable)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	products, err := h.svc.ListProducts(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request, onlyAvailable bool) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id, onlyAvailable)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// AvailableProducts is the client catalog.
func (h *CatalogHandler) AvailableProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

func (h *CatalogHandler) AvailableProduct(w http.ResponseWriter, r *http.Request) {
	h.getProduct(w, r, true)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, false)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	h.getProduct(w, r, false)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Availability returns the handler that marks a product (un)available.
func (h *CatalogHandler) Availability(available bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		p, err := h.svc.SetAvailability(r.Context(), id, available)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, p)
	}
}

func (h *CatalogHandler) AveragePrice(w http.ResponseWriter, r *http.Request) {
	avg, err := h.svc.AveragePrice(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]decimal.Decimal{"average_price": avg})
}
