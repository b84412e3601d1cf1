package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/4o31/shop/internal/cart"
	"github.com/4o31/shop/internal/domain"
)

type CartHandler struct {
	cart    *cart.Service
	timeout time.Duration
}

func NewCartHandler(cartSvc *cart.Service, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cartSvc,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type CartResponse struct {
	Items []domain.LineItem `json:"items"`
	Total int64             `json:"total"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must not be empty")
		return
	}

	product, err := h.cart.Add(ctx, userID, req.ProductID)
	if errors.Is(err, cart.ErrUnknownProduct) {
		respondError(w, http.StatusNotFound, "unknown_product", "no such product in the catalog")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	items, err := h.cart.Items(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"added": product.Name,
		"items": items,
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	items, err := h.cart.Items(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	total, err := h.cart.Total(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Items: items, Total: total})
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	h.cart.Clear(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}
