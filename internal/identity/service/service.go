// Package service implements password sign-up, sign-in and account termination on top of the OTP
// ledger, session manager and TOTP validation.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/audit"
	auditdomain "mobitech-crm/backend/internal/audit/domain"
	"mobitech-crm/backend/internal/security"
	sessiondomain "mobitech-crm/backend/internal/session/domain"
	sessionsvc "mobitech-crm/backend/internal/session/service"
	"mobitech-crm/backend/internal/telemetry"
	userdomain "mobitech-crm/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPhone       = errors.New("phone must be exactly 10 digits")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthorized       = errors.New("admin session required")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfTermination    = errors.New("admins cannot terminate their own account")
)

const minPasswordLen = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByPhone(ctx context.Context, phone string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	Terminate(ctx context.Context, userID string, at time.Time) error
}

// OTPRedeemer consumes a registration OTP.
type OTPRedeemer interface {
	Redeem(ctx context.Context, identifier, code string) error
}

// Sessions is the part of the session manager the auth service drives.
type Sessions interface {
	Create(ctx context.Context, userID string, isAdmin bool, meta sessionsvc.Meta) (*sessionsvc.Handle, error)
	Destroy(ctx context.Context, userID string) error
}

// CodeValidator checks TOTP codes.
type CodeValidator interface {
	Validate(code, secret string) bool
}

// SignupInput is a new account request. OTP is the registration code sent to Phone.
type SignupInput struct {
	Phone    string
	Password string
	Email    string
	Name     string
	OTP      string
}

// SignInResult is the outcome of SignIn. Session is nil when MFARequired is set.
type SignInResult struct {
	UserID                string
	IsAdmin               bool
	Session               *sessionsvc.Handle
	MFARequired           bool
	MFAEnrollmentRequired bool
}

// AuthService implements sign-up, sign-in and termination.
type AuthService struct {
	users    UserRepo
	otp      OTPRedeemer
	sessions Sessions
	hasher   *security.Hasher
	totp     CodeValidator
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. auditLogger, events and log may be nil.
func NewAuthService(
	users UserRepo,
	otp OTPRedeemer,
	sessions Sessions,
	hasher *security.Hasher,
	totp CodeValidator,
	auditLogger audit.AuditLogger,
	events telemetry.EventEmitter,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		otp:      otp,
		sessions: sessions,
		hasher:   hasher,
		totp:     totp,
		audit:    auditLogger,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Signup redeems the registration OTP for in.Phone and creates an active, non-admin user.
// Uniqueness is checked before the OTP is consumed so a taken phone does not burn the code.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*userdomain.User, error) {
	phone := strings.TrimSpace(in.Phone)
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !userdomain.ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}
	if email != "" && !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	existing, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("lookup phone: %w", err)
	}
	if existing != nil {
		return nil, ErrPhoneTaken
	}
	if email != "" {
		existing, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("lookup email: %w", err)
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
	}

	if err := s.otp.Redeem(ctx, phone, in.OTP); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Phone:        phone,
		PasswordHash: hash,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	switch err := s.users.Create(ctx, u); {
	case errors.Is(err, userdomain.ErrPhoneTaken):
		return nil, ErrPhoneTaken
	case errors.Is(err, userdomain.ErrEmailTaken):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logAudit(ctx, u.ID, auditdomain.ActionSignup, "user", "")
	return u, nil
}

// SignIn checks phone and password and opens a session. Unknown phones, wrong passwords and
// terminated users all fail with ErrInvalidCredentials. When MFA is enabled a valid totpCode is
// required; without one the result only reports MFARequired and no session is created.
// MFAEnrollmentRequired tells the caller to send the user to enrollment.
func (s *AuthService) SignIn(ctx context.Context, phone, password, totpCode string, meta sessionsvc.Meta) (*SignInResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, s.signInFailed(ctx, "", "missing_credentials")
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("lookup phone: %w", err)
	}
	if u == nil {
		return nil, s.signInFailed(ctx, "", "unknown_phone")
	}
	if !u.Active() {
		return nil, s.signInFailed(ctx, u.ID, "inactive")
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, s.signInFailed(ctx, u.ID, "bad_password")
	}
	if u.MFAEnabled {
		if totpCode == "" {
			return &SignInResult{UserID: u.ID, IsAdmin: u.IsAdmin, MFARequired: true}, nil
		}
		if !s.totp.Validate(totpCode, u.MFASecret) {
			return nil, s.signInFailed(ctx, u.ID, "bad_mfa_code")
		}
	}

	h, err := s.sessions.Create(ctx, u.ID, u.IsAdmin, meta)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, u.ID, auditdomain.ActionSignIn, "session", fmt.Sprintf(`{"session_id":%q}`, h.Session.ID))
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(telemetry.EventSignInSuccess, "auth_service", u.ID, h.Session.ID, map[string]any{
		"mfa": u.MFAEnabled,
	}))
	return &SignInResult{
		UserID:                u.ID,
		IsAdmin:               u.IsAdmin,
		Session:               h,
		MFAEnrollmentRequired: !u.MFAEnabled,
	}, nil
}

func (s *AuthService) signInFailed(ctx context.Context, userID, reason string) error {
	meta := fmt.Sprintf(`{"reason":%q}`, reason)
	s.logAudit(ctx, userID, auditdomain.ActionSignInFailure, "session", meta)
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(telemetry.EventSignInFailure, "auth_service", userID, "", map[string]string{
		"reason": reason,
	}))
	return ErrInvalidCredentials
}

// Terminate deactivates userID and destroys all of its sessions. The caller must be an admin and
// cannot terminate their own account.
func (s *AuthService) Terminate(ctx context.Context, caller sessiondomain.Descriptor, userID string) error {
	if !caller.IsLoggedIn || !caller.IsAdmin {
		return ErrUnauthorized
	}
	if userID == caller.UserID {
		return ErrSelfTermination
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return ErrUserNotFound
	}
	if err := s.users.Terminate(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("terminate user: %w", err)
	}
	if err := s.sessions.Destroy(ctx, userID); err != nil {
		return err
	}
	s.logAudit(ctx, caller.UserID, auditdomain.ActionTerminate, "user", fmt.Sprintf(`{"target_user_id":%q}`, userID))
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(telemetry.EventUserTerminated, "auth_service", userID, "", map[string]string{
		"terminated_by": caller.UserID,
	}))
	return nil
}

func (s *AuthService) logAudit(ctx context.Context, userID, action, resource, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, resource, metadata)
	}
}
