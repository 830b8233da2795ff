// Package handler exposes the session manager over HTTP: the caller's own session and the admin
// session list/revoke endpoints.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mobitech-crm/backend/internal/audit"
	auditdomain "mobitech-crm/backend/internal/audit/domain"
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
	"mobitech-crm/backend/internal/server/middleware"
	"mobitech-crm/backend/internal/session/domain"
	"mobitech-crm/backend/internal/session/service"
	"mobitech-crm/backend/internal/telemetry"
)

// Sessions is the part of the session manager used by the HTTP layer.
type Sessions interface {
	Destroy(ctx context.Context, userID string) error
	Revoke(ctx context.Context, caller domain.Descriptor, target service.RevokeTarget) (int64, error)
	List(ctx context.Context, caller domain.Descriptor, userID string, page, limit int) ([]*domain.Session, int64, error)
}

// Handler serves /auth/session and /admin/sessions.
type Handler struct {
	sessions Sessions
	cookies  middleware.CookieConfig
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
	log      *zap.Logger
}

// NewHandler returns a session handler. auditLogger and events may be nil.
func NewHandler(sessions Sessions, cookies middleware.CookieConfig, auditLogger audit.AuditLogger, events telemetry.EventEmitter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{sessions: sessions, cookies: cookies, audit: auditLogger, events: events, log: log}
}

// SuccessResponse is the body of DELETE /auth/session.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// SessionView is one row of the admin session list.
type SessionView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ListResponse is the body of GET /admin/sessions/list.
type ListResponse struct {
	Sessions   []SessionView    `json:"sessions"`
	Pagination httpx.Pagination `json:"pagination"`
}

// RevokeRequest names exactly one of a user or a single session.
type RevokeRequest struct {
	UserID    string `json:"userId" validate:"required_without=SessionID,excluded_with=SessionID"`
	SessionID string `json:"sessionId"`
}

// MessageResponse is the body of POST /admin/sessions/revoke.
type MessageResponse struct {
	Message string `json:"message"`
}

// Get returns the caller's session descriptor as reconciled by the session middleware.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, middleware.DescriptorFrom(r.Context()))
}

// Delete signs the caller out: every session row of the user is removed and the cookie cleared.
// Callers without a session get the same success response.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	d := middleware.DescriptorFrom(r.Context())
	if d.IsLoggedIn {
		if err := h.sessions.Destroy(r.Context(), d.UserID); err != nil {
			httpx.WriteError(w, r, err, h.log)
			return
		}
		if h.audit != nil {
			h.audit.LogEvent(r.Context(), d.UserID, auditdomain.ActionSignOut, "session", "")
		}
		telemetry.EmitAsync(h.events, h.log, telemetry.NewEvent(telemetry.EventSignOut, "session_handler", d.UserID, d.SessionID, nil))
	}
	h.cookies.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// List returns active sessions, newest first, optionally narrowed by ?userId.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePage(r, service.DefaultListLimit, service.MaxListLimit)
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	caller := middleware.DescriptorFrom(r.Context())
	list, total, err := h.sessions.List(r.Context(), caller, r.URL.Query().Get("userId"), page.Page, page.Limit)
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	views := make([]SessionView, 0, len(list))
	for _, s := range list {
		views = append(views, SessionView{
			ID:        s.ID,
			UserID:    s.UserID,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, ListResponse{Sessions: views, Pagination: httpx.NewPagination(page, total)})
}

// Revoke deletes one session or every session of a user.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	caller := middleware.DescriptorFrom(r.Context())
	n, err := h.sessions.Revoke(r.Context(), caller, service.RevokeTarget{SessionID: req.SessionID, UserID: req.UserID})
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	msg := "Session revoked successfully"
	if req.UserID != "" {
		msg = fmt.Sprintf("Revoked %d session(s) for user", n)
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return apperr.Unauthorized("Unauthorized")
	case errors.Is(err, service.ErrSessionNotFound):
		return apperr.NotFound("Session not found")
	case errors.Is(err, service.ErrInvalidTarget):
		return apperr.Validation(service.ErrInvalidTarget.Error())
	case errors.Is(err, service.ErrInvalidPageLimit):
		return apperr.Validation(service.ErrInvalidPageLimit.Error())
	default:
		return apperr.Internal(err)
	}
}
