package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobitech-crm/backend/internal/session/domain"
)

type auditCall struct {
	userID, action, resource string
}

type recordingAuditLogger struct {
	calls []auditCall
}

func (l *recordingAuditLogger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	l.calls = append(l.calls, auditCall{userID, action, resource})
}

func newAuditRouter(l *recordingAuditLogger, d domain.Descriptor, status int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithDescriptor(r.Context(), d)))
		})
	})
	r.Use(Audit(l, map[string]bool{"/api/v1/admin/sessions/revoke": true}))
	handler := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(status) }
	r.Post("/api/v1/admin/users/{id}/terminate", handler)
	r.Get("/api/v1/admin/sessions/list", handler)
	r.Post("/api/v1/admin/sessions/revoke", handler)
	return r
}

var adminDescriptor = domain.Descriptor{SessionID: "s1", UserID: "admin-1", IsLoggedIn: true, IsAdmin: true}

func TestAudit_RecordsStateChange(t *testing.T) {
	l := &recordingAuditLogger{}
	r := newAuditRouter(l, adminDescriptor, http.StatusOK)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/u9/terminate", nil))

	require.Len(t, l.calls, 1)
	assert.Equal(t, auditCall{"admin-1", "terminate", "user"}, l.calls[0])
}

func TestAudit_SkipsReads(t *testing.T) {
	l := &recordingAuditLogger{}
	r := newAuditRouter(l, adminDescriptor, http.StatusOK)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/admin/sessions/list", nil))
	assert.Empty(t, l.calls)
}

func TestAudit_SkipsFailures(t *testing.T) {
	l := &recordingAuditLogger{}
	r := newAuditRouter(l, adminDescriptor, http.StatusNotFound)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/u9/terminate", nil))
	assert.Empty(t, l.calls)
}

func TestAudit_SkipsAnonymous(t *testing.T) {
	l := &recordingAuditLogger{}
	r := newAuditRouter(l, domain.LoggedOut(), http.StatusOK)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/u9/terminate", nil))
	assert.Empty(t, l.calls)
}

func TestAudit_SkipsListedRoutes(t *testing.T) {
	l := &recordingAuditLogger{}
	r := newAuditRouter(l, adminDescriptor, http.StatusOK)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/admin/sessions/revoke", nil))
	assert.Empty(t, l.calls)
}
