package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"mobitech-crm/backend/internal/session/domain"
)

func TestDescriptorFrom_DefaultsToLoggedOut(t *testing.T) {
	d := DescriptorFrom(context.Background())
	assert.False(t, d.IsLoggedIn)
	assert.Empty(t, d.UserID)
}

func TestWithDescriptor(t *testing.T) {
	want := domain.Descriptor{SessionID: "s1", UserID: "u1", IsLoggedIn: true, IsAdmin: true}
	ctx := WithDescriptor(context.Background(), want)
	assert.Equal(t, want, DescriptorFrom(ctx))
}

func TestClientIPFrom(t *testing.T) {
	assert.Empty(t, ClientIPFrom(context.Background()))
	assert.Equal(t, "10.0.0.1", ClientIPFrom(WithClientIP(context.Background(), "10.0.0.1")))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "10.0.0.3:1234", "203.0.113.7"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 203.0.113.8 "}, "10.0.0.3:1234", "203.0.113.8"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.3:1234", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.10:5555", "192.0.2.10"},
		{"remote addr without port", nil, "192.0.2.11", "192.0.2.11"},
		{"nothing", nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
