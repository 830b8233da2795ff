package service

import (
	"context"
	"errors"
	"testing"
	"time"

	pqtotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobitech-crm/backend/internal/mfa/totp"
	"mobitech-crm/backend/internal/user/domain"
)

type memUsers struct {
	users  map[string]*domain.User
	getErr error
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetMFASecret(ctx context.Context, userID, secret string) error {
	u := m.users[userID]
	u.MFASecret, u.MFAEnabled, u.MFAVerified = secret, false, false
	return nil
}

func (m *memUsers) EnableMFA(ctx context.Context, userID string) error {
	u := m.users[userID]
	u.MFAEnabled, u.MFAVerified = true, true
	return nil
}

func newFixture() (*Service, *memUsers) {
	users := &memUsers{users: map[string]*domain.User{
		"u1":    {ID: "u1", Phone: "9876543210", Email: "agent@example.com"},
		"admin": {ID: "admin", Phone: "9000000000", Email: "admin@example.com", IsAdmin: true},
		"noeml": {ID: "noeml", Phone: "9111111111"},
	}}
	return NewService(users, totp.NewGenerator("Mobitech CRM")), users
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := pqtotp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	return code
}

func TestSetup_StoresUnverifiedSecret(t *testing.T) {
	svc, users := newFixture()

	qr, err := svc.Setup(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, qr, "data:image/png;base64,")

	u := users.users["u1"]
	assert.NotEmpty(t, u.MFASecret)
	assert.False(t, u.MFAEnabled)
	assert.False(t, u.MFAVerified)
}

func TestSetup_Errors(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.Setup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Setup(context.Background(), "noeml")
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestVerifyEnrollment_EnablesOnMatch(t *testing.T) {
	svc, users := newFixture()
	_, err := svc.Setup(context.Background(), "admin")
	require.NoError(t, err)

	isAdmin, err := svc.VerifyEnrollment(context.Background(), "admin", currentCode(t, users.users["admin"].MFASecret))
	require.NoError(t, err)
	assert.True(t, isAdmin)
	assert.True(t, users.users["admin"].MFAEnabled)
	assert.True(t, users.users["admin"].MFAVerified)

	enabled, err := svc.Status(context.Background(), "admin")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestVerifyEnrollment_WrongCodeChangesNothing(t *testing.T) {
	svc, users := newFixture()
	_, err := svc.Setup(context.Background(), "u1")
	require.NoError(t, err)

	// A code for a different secret must not enable MFA.
	other, err := totp.NewGenerator("x").Generate("other@example.com")
	require.NoError(t, err)
	_, err = svc.VerifyEnrollment(context.Background(), "u1", currentCode(t, other.Secret))
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.False(t, users.users["u1"].MFAEnabled)
}

func TestVerifyEnrollment_NoSecret(t *testing.T) {
	svc, _ := newFixture()
	_, err := svc.VerifyEnrollment(context.Background(), "u1", "123456")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestSetup_AgainDisablesMFA(t *testing.T) {
	svc, users := newFixture()
	_, err := svc.Setup(context.Background(), "u1")
	require.NoError(t, err)
	_, err = svc.VerifyEnrollment(context.Background(), "u1", currentCode(t, users.users["u1"].MFASecret))
	require.NoError(t, err)
	first := users.users["u1"].MFASecret

	_, err = svc.Setup(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEqual(t, first, users.users["u1"].MFASecret)
	assert.False(t, users.users["u1"].MFAEnabled)
}

func TestStatus(t *testing.T) {
	svc, _ := newFixture()
	enabled, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStoreFailure(t *testing.T) {
	svc, users := newFixture()
	users.getErr = errors.New("db down")
	_, err := svc.Status(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}
