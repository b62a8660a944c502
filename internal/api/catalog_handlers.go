package api

import (
	"net/http"
	"strconv"

	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/go-chi/chi/v5"
)

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	Name  catalog.Category `json:"name"`
	Count int              `json:"count"`
}

// ListCatalog returns all items, optionally filtered by ?category=
func (h *Handlers) ListCatalog(w http.ResponseWriter, r *http.Request) {
	cat := h.shop.Catalog()

	category := catalog.Category(r.URL.Query().Get("category"))
	if category == "" {
		respondJSON(w, http.StatusOK, cat.Items())
		return
	}
	if !category.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_category", "unknown category: "+string(category), nil)
		return
	}
	respondJSON(w, http.StatusOK, cat.ByCategory(category))
}

// ListCategories returns the categories present in the catalog in display order
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	counts := make(map[catalog.Category]int)
	var categories []CategoryResponse
	for _, item := range h.shop.Catalog().Items() {
		if counts[item.Category] == 0 {
			categories = append(categories, CategoryResponse{Name: item.Category})
		}
		counts[item.Category]++
	}
	for i := range categories {
		categories[i].Count = counts[categories[i].Name]
	}
	respondJSON(w, http.StatusOK, categories)
}

// GetCatalogItem returns a single item by id
func (h *Handlers) GetCatalogItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	item, err := h.shop.Catalog().Get(id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
