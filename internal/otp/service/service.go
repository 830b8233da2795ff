// Package service issues and redeems OTP challenges.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mobitech-crm/backend/internal/devotp"
	"mobitech-crm/backend/internal/messaging"
	"mobitech-crm/backend/internal/otp"
	"mobitech-crm/backend/internal/otp/domain"
	"mobitech-crm/backend/internal/ratelimit"
	"mobitech-crm/backend/internal/security"
	userdomain "mobitech-crm/backend/internal/user/domain"
)

// Sentinel errors for the OTP service; handlers map them to HTTP errors.
var (
	ErrInvalidIdentifier = errors.New("identifier must be a 10-digit phone number")
	ErrInvalidOrExpired  = errors.New("Invalid or expired OTP")
	ErrDelivery          = errors.New("failed to deliver OTP")
	ErrRateLimited       = errors.New("too many OTP attempts; try again later")
)

// ChallengeRepo is the minimal challenge repository needed by the service.
type ChallengeRepo interface {
	Create(ctx context.Context, c *domain.Challenge) error
	Redeem(ctx context.Context, identifier, codeHash string, now time.Time) (bool, error)
}

// Dispatcher delivers rendered OTP messages.
type Dispatcher interface {
	SendSMS(ctx context.Context, msg messaging.Message) error
	SendPreferWhatsApp(ctx context.Context, msg messaging.Message) (messaging.Medium, error)
}

// Limits caps issuance and redemption attempts per identifier within Window. Zero disables a limit.
type Limits struct {
	Send   int
	Verify int
	Window time.Duration
}

// Service is the OTP ledger.
type Service struct {
	repo       ChallengeRepo
	dispatcher Dispatcher
	limiter    ratelimit.Limiter
	limits     Limits
	devStore   devotp.Store
	log        *zap.Logger

	now      func() time.Time
	generate func() (string, error)
}

// NewService returns an OTP service. limiter may be nil (no limits). When devStore is non-nil, codes are
// parked there instead of being dispatched; it must only be set outside production.
func NewService(repo ChallengeRepo, dispatcher Dispatcher, limiter ratelimit.Limiter, limits Limits, devStore devotp.Store, log *zap.Logger) *Service {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		limiter:    limiter,
		limits:     limits,
		devStore:   devStore,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		generate:   otp.GenerateCode,
	}
}

// DevMode reports whether codes are parked for local retrieval instead of being sent.
func (s *Service) DevMode() bool {
	return s.devStore != nil
}

// Issue creates a challenge for identifier and dispatches the code. Login codes go over SMS;
// registration codes go over WhatsApp with SMS fallback. The returned medium is empty in dev mode.
// A delivery failure returns ErrDelivery but leaves the challenge redeemable.
func (s *Service) Issue(ctx context.Context, identifier string, purpose domain.Purpose, template string) (*domain.Challenge, messaging.Medium, error) {
	if !userdomain.ValidPhone(identifier) {
		return nil, "", ErrInvalidIdentifier
	}
	if err := s.allow(ctx, "otp:send:"+identifier, s.limits.Send); err != nil {
		return nil, "", err
	}
	code, err := s.generate()
	if err != nil {
		return nil, "", fmt.Errorf("generate otp: %w", err)
	}
	now := s.now()
	c := &domain.Challenge{
		ID:         uuid.New().String(),
		Identifier: identifier,
		CodeHash:   security.HashSecret(code),
		Purpose:    purpose,
		ExpiresAt:  now.Add(domain.ChallengeTTL),
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, "", fmt.Errorf("create otp challenge: %w", err)
	}

	if s.devStore != nil {
		s.devStore.Put(ctx, identifier, code, c.ExpiresAt)
		s.log.Debug("otp parked for dev retrieval", zap.String("challenge_id", c.ID))
		return c, "", nil
	}

	msg := messaging.Message{Phone: identifier, Code: code, Text: messaging.Render(template, code)}
	medium := messaging.MediumSMS
	if purpose == domain.PurposeRegistration {
		medium, err = s.dispatcher.SendPreferWhatsApp(ctx, msg)
	} else {
		err = s.dispatcher.SendSMS(ctx, msg)
	}
	if err != nil {
		return c, "", fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return c, medium, nil
}

// Redeem consumes the newest matching unused, unexpired challenge. Wrong and expired codes both
// return ErrInvalidOrExpired.
func (s *Service) Redeem(ctx context.Context, identifier, code string) error {
	if !userdomain.ValidPhone(identifier) {
		return ErrInvalidIdentifier
	}
	key := "otp:verify:" + identifier
	if err := s.allow(ctx, key, s.limits.Verify); err != nil {
		return err
	}
	ok, err := s.repo.Redeem(ctx, identifier, security.HashSecret(code), s.now())
	if err != nil {
		return fmt.Errorf("redeem otp: %w", err)
	}
	if !ok {
		return ErrInvalidOrExpired
	}
	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Warn("otp verify limit reset failed", zap.Error(err))
	}
	return nil
}

// allow fails open when the limiter itself is unavailable.
func (s *Service) allow(ctx context.Context, key string, limit int) error {
	ok, err := s.limiter.Allow(ctx, key, limit, s.limits.Window)
	if err != nil {
		s.log.Warn("otp rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}
