package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/4o31/shop/internal/checkout"
	"github.com/4o31/shop/internal/discount"
	"github.com/4o31/shop/internal/domain"
)

type CheckoutHandler struct {
	checkout *checkout.Service
	timeout  time.Duration
}

func NewCheckoutHandler(checkoutSvc *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkoutSvc,
		timeout:  timeout,
	}
}

type BeginCheckoutResponse struct {
	SessionID string            `json:"session_id"`
	Items     []domain.LineItem `json:"items"`
	Total     int64             `json:"total"`
}

type ApplyDiscountRequestDTO struct {
	Code string `json:"code"`
}

type ApplyDiscountResponse struct {
	Status    string `json:"status"`
	BaseTotal int64  `json:"base_total"`
	Total     int64  `json:"total"`
}

type ConfirmResponse struct {
	Hash  string `json:"hash"`
	Total int64  `json:"total"`
}

func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	session, err := h.checkout.Begin(ctx, userID)
	if errors.Is(err, checkout.ErrEmptyCart) {
		respondError(w, http.StatusBadRequest, "empty_cart", "add items to the cart before checking out")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, BeginCheckoutResponse{
		SessionID: session.ID,
		Items:     session.Items,
		Total:     session.BaseTotal,
	})
}

func (h *CheckoutHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "sessionID")

	var req ApplyDiscountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	outcome, err := h.checkout.ApplyDiscount(ctx, sessionID, req.Code)
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "no such checkout session")
		return
	case errors.Is(err, checkout.ErrInvalidState):
		respondError(w, http.StatusConflict, "invalid_state", "the checkout session is no longer reviewing")
		return
	case errors.Is(err, discount.ErrInvalidCode):
		respondError(w, http.StatusBadRequest, "invalid_code", "the discount code is not valid")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ApplyDiscountResponse{
		Status:    string(outcome.Result),
		BaseTotal: outcome.BaseTotal,
		Total:     outcome.DisplayTotal,
	})
}

func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.checkout.Confirm(ctx, sessionID)
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "no such checkout session")
		return
	case errors.Is(err, checkout.ErrInvalidState):
		respondError(w, http.StatusConflict, "invalid_state", "the checkout session cannot be confirmed")
		return
	case err != nil:
		// The purchase did not happen; the cart is intact and confirm can be retried
		log.Printf("request %s: confirm of session %s failed: %v", getRequestID(r.Context()), sessionID, err)
		respondError(w, http.StatusBadGateway, "persistence_failure", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ConfirmResponse{
		Hash:  result.Hash,
		Total: result.Total,
	})
}
