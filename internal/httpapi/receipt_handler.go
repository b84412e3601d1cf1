package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/4o31/shop/internal/receipt"
)

type ReceiptHandler struct {
	ledger  *receipt.Ledger
	timeout time.Duration
}

func NewReceiptHandler(ledger *receipt.Ledger, timeout time.Duration) *ReceiptHandler {
	return &ReceiptHandler{
		ledger:  ledger,
		timeout: timeout,
	}
}

type ReceiptDTO struct {
	Items string `json:"items"`
	Total int64  `json:"total"`
	Date  string `json:"date"`
}

type ReceiptLookupResponse struct {
	Found   bool        `json:"found"`
	Receipt *ReceiptDTO `json:"receipt,omitempty"`
}

// Get looks up a receipt by hash. An empty or whitespace-only hash is a
// neutral "no query" answer, not a miss.
func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	hash := chi.URLParam(r, "hash")
	if hash == "" {
		hash = r.URL.Query().Get("hash")
	}

	rec, err := h.ledger.Lookup(ctx, hash)
	switch {
	case errors.Is(err, receipt.ErrEmptyQuery):
		respondJSON(w, http.StatusOK, ReceiptLookupResponse{Found: false})
		return
	case errors.Is(err, receipt.ErrReceiptNotFound):
		respondError(w, http.StatusNotFound, "not_found", "no receipt with that ID")
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, "persistence_failure", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ReceiptLookupResponse{
		Found: true,
		Receipt: &ReceiptDTO{
			Items: rec.Items,
			Total: rec.Total,
			Date:  rec.Date,
		},
	})
}
