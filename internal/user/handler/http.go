// Package handler exposes user profile reads over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
	"mobitech-crm/backend/internal/platform/rbac"
	"mobitech-crm/backend/internal/server/middleware"
	"mobitech-crm/backend/internal/user/domain"
)

// Users loads user accounts.
type Users interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Handler serves GET /users/me and GET /admin/users/{id}.
type Handler struct {
	users Users
	log   *zap.Logger
}

// NewHandler returns a user handler.
func NewHandler(users Users, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{users: users, log: log}
}

// UserView is the public representation of a user. Secrets and hashes are never included.
type UserView struct {
	ID                string     `json:"id"`
	Phone             string     `json:"phone"`
	Email             string     `json:"email,omitempty"`
	Name              string     `json:"name,omitempty"`
	IsAdmin           bool       `json:"isAdmin"`
	MFAEnabled        bool       `json:"mfaEnabled"`
	Status            string     `json:"status"`
	DateOfTermination *time.Time `json:"dateOfTermination,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toView(u *domain.User) UserView {
	return UserView{
		ID:                u.ID,
		Phone:             u.Phone,
		Email:             u.Email,
		Name:              u.Name,
		IsAdmin:           u.IsAdmin,
		MFAEnabled:        u.MFAEnabled,
		Status:            string(u.Status),
		DateOfTermination: u.DateOfTermination,
		CreatedAt:         u.CreatedAt,
	}
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := rbac.RequireUser(middleware.DescriptorFrom(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	h.write(w, r, userID)
}

// Get handles GET /admin/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := rbac.RequireAdmin(middleware.DescriptorFrom(r.Context())); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	h.write(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, userID string) {
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, apperr.Internal(err), h.log)
		return
	}
	if u == nil {
		httpx.WriteError(w, r, apperr.NotFound("User not found"), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(u))
}
