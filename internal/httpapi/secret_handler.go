package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/4o31/shop/internal/konami"
)

type SecretHandler struct {
	detector *konami.Detector
	unlocker *konami.Unlocker
	timeout  time.Duration
}

func NewSecretHandler(detector *konami.Detector, unlocker *konami.Unlocker, timeout time.Duration) *SecretHandler {
	return &SecretHandler{
		detector: detector,
		unlocker: unlocker,
		timeout:  timeout,
	}
}

type PressKeyRequestDTO struct {
	Key string `json:"key"`
}

type PressKeyResponse struct {
	Unlocked     bool   `json:"unlocked"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// PressKey feeds one key into the sequence detector. When the sequence
// completes, a fresh discount code is minted and the secret product revealed.
func (h *SecretHandler) PressKey(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PressKeyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Key == "" {
		respondError(w, http.StatusBadRequest, "invalid_key", "key must not be empty")
		return
	}

	if !h.detector.Press(req.Key) {
		respondJSON(w, http.StatusOK, PressKeyResponse{Unlocked: false})
		return
	}

	code, err := h.unlocker.Unlock(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "persistence_failure", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, PressKeyResponse{
		Unlocked:     true,
		DiscountCode: code,
	})
}
