package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
)

type ProductHandler struct {
	catalog catalog.Store
}

func NewProductHandler(cat catalog.Store) *ProductHandler {
	return &ProductHandler{catalog: cat}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))

	result, err := h.catalog.ListProducts(r.Context(), catalog.ListQuery{
		Search:  q.Get("search"),
		Brands:  splitCSV(q.Get("brands")),
		Types:   splitCSV(q.Get("types")),
		OrderBy: q.Get("orderBy"),
		Page:    page,
		Size:    size,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
