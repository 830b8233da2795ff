// Package service implements TOTP enrollment and status. It reports MFA state; callers enforce it.
package service

import (
	"context"
	"errors"
	"fmt"

	"mobitech-crm/backend/internal/mfa/totp"
	"mobitech-crm/backend/internal/user/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrMissingEmail = errors.New("email is required for MFA setup")
	ErrNoSecret     = errors.New("MFA setup has not been started")
	ErrInvalidCode  = errors.New("invalid MFA code")
)

// UserRepo is the part of the credential store the MFA service needs.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SetMFASecret(ctx context.Context, userID, secret string) error
	EnableMFA(ctx context.Context, userID string) error
}

// Enroller generates TOTP secrets and validates codes against them.
type Enroller interface {
	Generate(account string) (*totp.Enrollment, error)
	Validate(code, secret string) bool
}

// Service is the MFA service.
type Service struct {
	users    UserRepo
	enroller Enroller
}

// NewService returns an MFA service over the given user store and TOTP enroller.
func NewService(users UserRepo, enroller Enroller) *Service {
	return &Service{users: users, enroller: enroller}
}

// Setup generates a fresh secret for userID and stores it unverified. MFA is not enabled until
// VerifyEnrollment succeeds; re-running Setup replaces the secret and disables MFA again.
// Returns the enrollment QR code as a PNG data URL.
func (s *Service) Setup(ctx context.Context, userID string) (string, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.Email == "" {
		return "", ErrMissingEmail
	}
	e, err := s.enroller.Generate(u.Email)
	if err != nil {
		return "", err
	}
	if err := s.users.SetMFASecret(ctx, u.ID, e.Secret); err != nil {
		return "", fmt.Errorf("store mfa secret: %w", err)
	}
	return e.QRCodeDataURL, nil
}

// VerifyEnrollment checks code against the stored secret and enables MFA on a match.
// A wrong code changes nothing. Returns whether the user is an admin so the caller can route them.
func (s *Service) VerifyEnrollment(ctx context.Context, userID, code string) (isAdmin bool, err error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.MFASecret == "" {
		return false, ErrNoSecret
	}
	if !s.enroller.Validate(code, u.MFASecret) {
		return false, ErrInvalidCode
	}
	if err := s.users.EnableMFA(ctx, u.ID); err != nil {
		return false, fmt.Errorf("enable mfa: %w", err)
	}
	return u.IsAdmin, nil
}

// Status reports whether MFA is enabled for userID.
func (s *Service) Status(ctx context.Context, userID string) (bool, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.MFAEnabled, nil
}

func (s *Service) load(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
