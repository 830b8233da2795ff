package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobitech-crm/backend/internal/policy/engine"
	"mobitech-crm/backend/internal/server/middleware"
	sessiondomain "mobitech-crm/backend/internal/session/domain"
	userdomain "mobitech-crm/backend/internal/user/domain"
)

type stubUsers struct {
	users map[string]*userdomain.User
	err   error
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func newGate(t *testing.T, users *stubUsers) *Gate {
	t.Helper()
	eval, err := engine.NewOPAEvaluator(context.Background(), "")
	require.NoError(t, err)
	return NewGate(eval, users, nil)
}

func withSession(r *http.Request, d sessiondomain.Descriptor) *http.Request {
	return r.WithContext(middleware.WithDescriptor(r.Context(), d))
}

func TestGateCheck(t *testing.T) {
	users := &stubUsers{users: map[string]*userdomain.User{
		"enrolled": {ID: "enrolled", Status: userdomain.UserStatusActive, MFAEnabled: true},
		"pending":  {ID: "pending", Status: userdomain.UserStatusActive},
		"gone":     {ID: "gone", Status: userdomain.UserStatusInactive, MFAEnabled: true},
	}}
	g := newGate(t, users)

	tests := []struct {
		name  string
		query string
		d     sessiondomain.Descriptor
		want  engine.Decision
	}{
		{"anonymous", "", sessiondomain.LoggedOut(), engine.Decision{Redirect: "/login"}},
		{"enrolled dashboard", "?surface=dashboard", sessiondomain.Descriptor{UserID: "enrolled", IsLoggedIn: true}, engine.Decision{Allow: true}},
		{"pending mfa", "", sessiondomain.Descriptor{UserID: "pending", IsLoggedIn: true}, engine.Decision{Redirect: "/mfa/setup"}},
		{"non-admin admin surface", "?surface=admin", sessiondomain.Descriptor{UserID: "enrolled", IsLoggedIn: true}, engine.Decision{Redirect: "/"}},
		{"admin", "?surface=admin", sessiondomain.Descriptor{UserID: "enrolled", IsLoggedIn: true, IsAdmin: true}, engine.Decision{Allow: true}},
		{"terminated user", "", sessiondomain.Descriptor{UserID: "gone", IsLoggedIn: true}, engine.Decision{Redirect: "/login"}},
		{"missing user", "", sessiondomain.Descriptor{UserID: "nobody", IsLoggedIn: true}, engine.Decision{Redirect: "/login"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			g.Check(rec, withSession(httptest.NewRequest(http.MethodGet, "/auth/gate"+tt.query, nil), tt.d))

			require.Equal(t, http.StatusOK, rec.Code)
			var got engine.Decision
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGateCheck_UnknownSurface(t *testing.T) {
	rec := httptest.NewRecorder()
	newGate(t, &stubUsers{}).Check(rec, httptest.NewRequest(http.MethodGet, "/auth/gate?surface=reports", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateCheck_LookupError(t *testing.T) {
	g := newGate(t, &stubUsers{err: errors.New("db down")})
	rec := httptest.NewRecorder()
	g.Check(rec, withSession(httptest.NewRequest(http.MethodGet, "/auth/gate", nil),
		sessiondomain.Descriptor{UserID: "u1", IsLoggedIn: true}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGateRequire(t *testing.T) {
	users := &stubUsers{users: map[string]*userdomain.User{
		"enrolled": {ID: "enrolled", Status: userdomain.UserStatusActive, MFAEnabled: true},
		"pending":  {ID: "pending", Status: userdomain.UserStatusActive},
	}}
	g := newGate(t, users)
	var reached bool
	h := g.Require(engine.SurfaceDashboard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/qc/records", nil),
		sessiondomain.Descriptor{UserID: "enrolled", IsLoggedIn: true}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, reached)

	reached = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/qc/records", nil),
		sessiondomain.Descriptor{UserID: "pending", IsLoggedIn: true}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)

	var body struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.Equal(t, "/mfa/setup", body.Fields["redirect"])
}
