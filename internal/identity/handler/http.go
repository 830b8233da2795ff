// Package handler exposes sign-up, sign-in and admin termination over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/identity/service"
	otpservice "mobitech-crm/backend/internal/otp/service"
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/platform/httpx"
	"mobitech-crm/backend/internal/server/middleware"
	sessiondomain "mobitech-crm/backend/internal/session/domain"
	sessionsvc "mobitech-crm/backend/internal/session/service"
	userdomain "mobitech-crm/backend/internal/user/domain"
)

// Auth is the auth service as used by the HTTP layer.
type Auth interface {
	Signup(ctx context.Context, in service.SignupInput) (*userdomain.User, error)
	SignIn(ctx context.Context, phone, password, totpCode string, meta sessionsvc.Meta) (*service.SignInResult, error)
	Terminate(ctx context.Context, caller sessiondomain.Descriptor, userID string) error
}

// Handler serves /auth/signup, /auth/signin and /admin/users/{id}/terminate.
type Handler struct {
	auth    Auth
	cookies middleware.CookieConfig
	log     *zap.Logger
}

// NewHandler returns an auth handler that writes session cookies per cookies.
func NewHandler(auth Auth, cookies middleware.CookieConfig, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{auth: auth, cookies: cookies, log: log}
}

type SignupRequest struct {
	Phone    string `json:"phone" validate:"required,len=10,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name" validate:"max=100"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
}

type SignupResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

type SignInRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
	TOTP     string `json:"totp" validate:"omitempty,len=6,numeric"`
}

type SignInResponse struct {
	Success               bool   `json:"success"`
	UserID                string `json:"userId"`
	IsAdmin               bool   `json:"isAdmin"`
	MFARequired           bool   `json:"mfaRequired"`
	MFAEnrollmentRequired bool   `json:"mfaEnrollmentRequired"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Signup creates an account after redeeming the registration OTP.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	u, err := h.auth.Signup(r.Context(), service.SignupInput{
		Phone:    req.Phone,
		Password: req.Password,
		Email:    req.Email,
		Name:     req.Name,
		OTP:      req.OTP,
	})
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, SignupResponse{Success: true, UserID: u.ID})
}

// SignIn checks credentials and sets the session cookie. When MFA is enabled and no code was sent,
// the response reports mfaRequired and no cookie is set.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err, h.log)
		return
	}
	meta := sessionsvc.Meta{IPAddress: middleware.ClientIP(r), UserAgent: r.UserAgent()}
	res, err := h.auth.SignIn(r.Context(), req.Phone, req.Password, req.TOTP, meta)
	if err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	if res.Session != nil {
		h.cookies.Set(w, res.Session.Token, res.Session.Session.ExpiresAt)
	}
	httpx.WriteJSON(w, http.StatusOK, SignInResponse{
		Success:               res.Session != nil,
		UserID:                res.UserID,
		IsAdmin:               res.IsAdmin,
		MFARequired:           res.MFARequired,
		MFAEnrollmentRequired: res.MFAEnrollmentRequired,
	})
}

// Terminate deactivates the user in the {id} path parameter.
func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	caller := middleware.DescriptorFrom(r.Context())
	if err := h.auth.Terminate(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, mapError(err), h.log)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "User terminated successfully"})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperr.Unauthorized("Invalid phone or password")
	case errors.Is(err, service.ErrUnauthorized):
		return apperr.Unauthorized("Unauthorized")
	case errors.Is(err, service.ErrPhoneTaken):
		return apperr.Conflict("Phone number already registered")
	case errors.Is(err, service.ErrEmailTaken):
		return apperr.Conflict("Email already registered")
	case errors.Is(err, service.ErrUserNotFound):
		return apperr.NotFound("User not found")
	case errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrSelfTermination):
		return apperr.Validation(err.Error())
	case errors.Is(err, otpservice.ErrInvalidOrExpired):
		return apperr.Validation(otpservice.ErrInvalidOrExpired.Error())
	case errors.Is(err, otpservice.ErrRateLimited):
		return apperr.RateLimited("Too many attempts, try again later")
	default:
		return apperr.Internal(err)
	}
}
