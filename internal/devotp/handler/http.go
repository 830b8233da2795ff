// Package handler serves the dev-only OTP lookup. Only mounted when dev OTP mode is enabled and not production.
package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/devotp"
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
)

const devOTPNote = "DEV MODE ONLY"

// Handler serves GET /dev/otp.
type Handler struct {
	store devotp.Store
	log   *zap.Logger
}

// NewHandler returns a dev OTP handler that reads codes from store.
func NewHandler(store devotp.Store, log *zap.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// OTPResponse is the body of a successful lookup.
type OTPResponse struct {
	Identifier string    `json:"identifier"`
	OTP        string    `json:"otp"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Note       string    `json:"note"`
}

// GetOTP returns the latest parked code for ?identifier=. NotFound if missing or expired.
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		httpx.WriteError(w, r, apperr.Validation("identifier is required"), h.log)
		return
	}
	code, expiresAt, ok := h.store.Get(r.Context(), identifier)
	if !ok {
		httpx.WriteError(w, r, apperr.NotFound("OTP not found or expired"), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, OTPResponse{
		Identifier: identifier,
		OTP:        code,
		ExpiresAt:  expiresAt,
		Note:       devOTPNote,
	})
}
