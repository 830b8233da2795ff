// Package handler serves the OTP send and verify routes.
package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/messaging"
	"mobitech-crm/backend/internal/otp/domain"
	"mobitech-crm/backend/internal/otp/service"
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
)

// Ledger is the OTP service as seen by the handler.
type Ledger interface {
	Issue(ctx context.Context, identifier string, purpose domain.Purpose, template string) (*domain.Challenge, messaging.Medium, error)
	Redeem(ctx context.Context, identifier, code string) error
	DevMode() bool
}

// Handler serves /otp/send, /registration-otp/send and /otp/verify.
type Handler struct {
	ledger Ledger
	log    *zap.Logger
}

// NewHandler returns an OTP handler.
func NewHandler(ledger Ledger, log *zap.Logger) *Handler {
	return &Handler{ledger: ledger, log: log}
}

// SendRequest is the body of both send routes. Message is an optional template containing {otp}.
type SendRequest struct {
	Identifier string `json:"identifier" validate:"required,len=10,numeric"`
	Message    string `json:"message" validate:"max=500"`
}

// VerifyRequest is the body of POST /otp/verify.
type VerifyRequest struct {
	Identifier string `json:"identifier" validate:"required,len=10,numeric"`
	OTP        string `json:"otp" validate:"required,len=6,numeric"`
}

// Response is the success body of every OTP route.
type Response struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Medium  messaging.Medium `json:"medium,omitempty"`
}

// Send handles POST /otp/send. The code goes out over SMS.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, domain.PurposeLogin)
}

// SendRegistration handles POST /registration-otp/send. WhatsApp first, SMS fallback.
func (h *Handler) SendRegistration(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, domain.PurposeRegistration)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, purpose domain.Purpose) {
	var req SendRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	_, medium, err := h.ledger.Issue(r.Context(), req.Identifier, purpose, req.Message)
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	resp := Response{Success: true, Message: "OTP sent successfully"}
	if h.ledger.DevMode() {
		resp.Message = "OTP generated (dev mode); fetch it from /dev/otp"
	}
	if purpose == domain.PurposeRegistration {
		resp.Medium = medium
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Verify handles POST /otp/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	if err := h.ledger.Redeem(r.Context(), req.Identifier, req.OTP); err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, Response{Success: true, Message: "OTP verified successfully"})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidIdentifier):
		return apperr.Validation(service.ErrInvalidIdentifier.Error())
	case errors.Is(err, service.ErrInvalidOrExpired):
		return apperr.Validation(service.ErrInvalidOrExpired.Error())
	case errors.Is(err, service.ErrRateLimited):
		return apperr.RateLimited(service.ErrRateLimited.Error())
	case errors.Is(err, service.ErrDelivery):
		return apperr.Delivery(err)
	default:
		return apperr.Internal(err)
	}
}
