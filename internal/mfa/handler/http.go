// Package handler exposes MFA enrollment and status over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/audit"
	auditdomain "mobitech-crm/backend/internal/audit/domain"
	"mobitech-crm/backend/internal/mfa/service"
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
	"mobitech-crm/backend/internal/platform/rbac"
	"mobitech-crm/backend/internal/server/middleware"
	"mobitech-crm/backend/internal/telemetry"
)

// MFA is the MFA service as used by the HTTP layer.
type MFA interface {
	Setup(ctx context.Context, userID string) (string, error)
	VerifyEnrollment(ctx context.Context, userID, code string) (bool, error)
	Status(ctx context.Context, userID string) (bool, error)
}

// Handler serves /mfa routes. Every route requires a logged-in session; a userId other than the
// caller's own is accepted only from admins.
type Handler struct {
	mfa    MFA
	audit  audit.AuditLogger
	events telemetry.EventEmitter
	log    *zap.Logger
}

// NewHandler returns an MFA handler. auditLogger and events may be nil.
func NewHandler(mfa MFA, auditLogger audit.AuditLogger, events telemetry.EventEmitter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{mfa: mfa, audit: auditLogger, events: events, log: log}
}

type SetupRequest struct {
	UserID string `json:"userId"`
}

type SetupResponse struct {
	QRCodeDataURL string `json:"qrCodeDataUrl"`
}

type VerifyRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token" validate:"required,len=6,numeric"`
}

type VerifyResponse struct {
	Success bool `json:"success"`
	IsAdmin bool `json:"isAdmin"`
}

type CheckResponse struct {
	IsMFAEnabled bool   `json:"isMfaEnabled"`
	UserID       string `json:"userId"`
}

// GetSetup handles GET /mfa/setup?userId=.
func (h *Handler) GetSetup(w http.ResponseWriter, r *http.Request) {
	h.setup(w, r, r.URL.Query().Get("userId"))
}

// PostSetup handles POST /mfa/setup {userId}.
func (h *Handler) PostSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	h.setup(w, r, req.UserID)
}

func (h *Handler) setup(w http.ResponseWriter, r *http.Request, requested string) {
	userID, err := targetUser(r, requested)
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	qr, err := h.mfa.Setup(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, SetupResponse{QRCodeDataURL: qr})
}

// Verify handles POST /mfa/verify {userId, token}.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	userID, err := targetUser(r, req.UserID)
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	isAdmin, err := h.mfa.VerifyEnrollment(r.Context(), userID, req.Token)
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	if h.audit != nil {
		h.audit.LogEvent(r.Context(), userID, auditdomain.ActionMFAEnable, "user", "")
	}
	d := middleware.DescriptorFrom(r.Context())
	telemetry.EmitAsync(h.events, h.log, telemetry.NewEvent(telemetry.EventMFAEnabled, "mfa_handler", userID, d.SessionID, nil))
	httpx.WriteJSON(w, http.StatusOK, VerifyResponse{Success: true, IsAdmin: isAdmin})
}

// Check handles GET /mfa/check for the caller's own account.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	userID, err := rbac.RequireUser(middleware.DescriptorFrom(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	enabled, err := h.mfa.Status(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, CheckResponse{IsMFAEnabled: enabled, UserID: userID})
}

// targetUser resolves the user an MFA request acts on: the caller by default, or requested when the
// caller is that user or an admin.
func targetUser(r *http.Request, requested string) (string, error) {
	d := middleware.DescriptorFrom(r.Context())
	callerID, err := rbac.RequireUser(d)
	if err != nil {
		return "", err
	}
	if requested == "" || requested == callerID {
		return callerID, nil
	}
	if !d.IsAdmin {
		return "", apperr.Unauthorized("Unauthorized")
	}
	return requested, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return apperr.NotFound("User not found")
	case errors.Is(err, service.ErrMissingEmail):
		return apperr.Validation("Email is required for MFA setup")
	case errors.Is(err, service.ErrNoSecret):
		return apperr.Validation("MFA setup has not been started")
	case errors.Is(err, service.ErrInvalidCode):
		return apperr.Validation("Invalid MFA code")
	default:
		return apperr.Internal(err)
	}
}
