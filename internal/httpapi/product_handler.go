package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/4o31/shop/internal/catalog"
	"github.com/4o31/shop/internal/konami"
)

type ProductHandler struct {
	catalog  catalog.Repository
	unlocker *konami.Unlocker
	timeout  time.Duration
}

func NewProductHandler(catalogRepo catalog.Repository, unlocker *konami.Unlocker, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog:  catalogRepo,
		unlocker: unlocker,
		timeout:  timeout,
	}
}

type ProductDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Emoji       string `json:"emoji"`
	IsSecret    bool   `json:"is_secret,omitempty"`
}

type ProductsResponse struct {
	Products  []ProductDTO `json:"products"`
	ItemCount int          `json:"item_count"`
}

// Get lists the visible catalog. Secret products stay hidden until the
// unlock flag is set; the item count only counts priced products, matching
// the storefront grid.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.GetAllProducts(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "catalog_unavailable", err.Error())
		return
	}

	unlocked := h.unlocker.Unlocked(ctx)

	response := ProductsResponse{Products: []ProductDTO{}}
	for _, p := range products {
		if p.IsSecret && !unlocked {
			continue
		}
		response.Products = append(response.Products, ProductDTO{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Emoji:       p.Emoji,
			IsSecret:    p.IsSecret,
		})
		if p.Price > 0 {
			response.ItemCount++
		}
	}

	respondJSON(w, http.StatusOK, response)
}
