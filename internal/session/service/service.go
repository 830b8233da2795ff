// Package service manages the session lifecycle: signed cookie descriptor plus a database row.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mobitech-crm/backend/internal/security"
	"mobitech-crm/backend/internal/session/domain"
	"mobitech-crm/backend/internal/session/repository"
)

// Sentinel errors for the session service; handlers map them to HTTP errors.
var (
	ErrUnauthorized     = errors.New("admin session required")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidTarget    = errors.New("exactly one of userId or sessionId is required")
	ErrInvalidPageLimit = errors.New("page must be at least 1")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Repo is the minimal session repository needed by the service.
type Repo interface {
	Create(ctx context.Context, s *domain.Session) error
	GetActive(ctx context.Context, id, userID string, now time.Time) (*domain.Session, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, f repository.ListFilter, now time.Time, limit, offset int) ([]*domain.Session, int64, error)
}

// Tokens signs and verifies session descriptors.
type Tokens interface {
	IssueSession(sessionID, userID string, isAdmin bool, expiresAt time.Time) (string, error)
	ValidateSession(token string) (*security.SessionClaims, error)
}

// Meta is request metadata recorded on a new session row.
type Meta struct {
	IPAddress string
	UserAgent string
}

// Handle is a freshly created session and the signed token for its cookie.
type Handle struct {
	Session *domain.Session
	Token   string
}

// ReadResult is the outcome of decoding a cookie. Invalidated is set when the request carried a
// token that no longer maps to a live session, so the caller should clear the cookie.
type ReadResult struct {
	Descriptor  domain.Descriptor
	Invalidated bool
}

// RevokeTarget names what to revoke. Exactly one field must be set.
type RevokeTarget struct {
	SessionID string
	UserID    string
}

// Service is the session manager.
type Service struct {
	repo   Repo
	tokens Tokens
	ttl    time.Duration
	now    func() time.Time
}

// NewService returns a session manager issuing sessions that live for ttl.
func NewService(repo Repo, tokens Tokens, ttl time.Duration) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a session row for userID and signs a descriptor bound to it.
func (s *Service) Create(ctx context.Context, userID string, isAdmin bool, meta Meta) (*Handle, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.IssueSession(sess.ID, userID, isAdmin, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Handle{Session: sess, Token: token}, nil
}

// Read decodes token and reconciles it against the store. A missing token is logged out; a bad or
// stale token is logged out and invalidated.
func (s *Service) Read(ctx context.Context, token string) (ReadResult, error) {
	if token == "" {
		return ReadResult{Descriptor: domain.LoggedOut()}, nil
	}
	claims, err := s.tokens.ValidateSession(token)
	if err != nil {
		return ReadResult{Descriptor: domain.LoggedOut(), Invalidated: true}, nil
	}
	d := domain.Descriptor{
		SessionID:  claims.SessionID,
		UserID:     claims.Subject,
		IsLoggedIn: claims.IsLoggedIn,
		IsAdmin:    claims.IsAdmin,
	}
	return s.Reconcile(ctx, d)
}

// Reconcile checks a logged-in descriptor against the store: an unexpired row with the same session
// id and user id must exist. Descriptors that are not logged in pass through unchanged.
func (s *Service) Reconcile(ctx context.Context, d domain.Descriptor) (ReadResult, error) {
	if !d.IsLoggedIn {
		return ReadResult{Descriptor: d}, nil
	}
	row, err := s.repo.GetActive(ctx, d.SessionID, d.UserID, s.now())
	if err != nil {
		return ReadResult{}, fmt.Errorf("reconcile session: %w", err)
	}
	if row == nil {
		return ReadResult{Descriptor: domain.LoggedOut(), Invalidated: true}, nil
	}
	return ReadResult{Descriptor: d}, nil
}

// Destroy deletes every session of userID. The caller clears the cookie.
func (s *Service) Destroy(ctx context.Context, userID string) error {
	if _, err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("destroy sessions: %w", err)
	}
	return nil
}

// Revoke deletes one session or all of a user's sessions on behalf of an admin caller.
// It returns the number of rows removed.
func (s *Service) Revoke(ctx context.Context, caller domain.Descriptor, target RevokeTarget) (int64, error) {
	if !caller.IsLoggedIn || !caller.IsAdmin {
		return 0, ErrUnauthorized
	}
	if (target.SessionID == "") == (target.UserID == "") {
		return 0, ErrInvalidTarget
	}
	if target.SessionID != "" {
		n, err := s.repo.DeleteByID(ctx, target.SessionID)
		if err != nil {
			return 0, fmt.Errorf("revoke session: %w", err)
		}
		if n == 0 {
			return 0, ErrSessionNotFound
		}
		return n, nil
	}
	n, err := s.repo.DeleteByUser(ctx, target.UserID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return n, nil
}

// List returns active sessions newest first for an admin caller. userID optionally narrows the
// result to one user. limit defaults to DefaultListLimit and is capped at MaxListLimit.
func (s *Service) List(ctx context.Context, caller domain.Descriptor, userID string, page, limit int) ([]*domain.Session, int64, error) {
	if !caller.IsLoggedIn || !caller.IsAdmin {
		return nil, 0, ErrUnauthorized
	}
	if page < 1 {
		return nil, 0, ErrInvalidPageLimit
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	list, total, err := s.repo.List(ctx, repository.ListFilter{UserID: userID}, s.now(), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return list, total, nil
}
