package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMSLocalClient_Defaults(t *testing.T) {
	client := NewSMSLocalClient("api-key", "", "")
	assert.Equal(t, "https://app.smslocal.in/api/smsapi", client.BaseURL)
	require.NotNil(t, client.HTTPClient)
	assert.Equal(t, defaultTimeout, client.HTTPClient.Timeout)
}

func TestSMSLocalClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-api-key", r.Header.Get("Authorization"))
		var body map[string]any
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			assert.Equal(t, "otp", body["route"])
			assert.Equal(t, "9876543210", body["numbers"])
			assert.Equal(t, "482913", body["variables"])
			assert.Equal(t, "MOBTCH", body["sender_id"])
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	client := NewSMSLocalClient("test-api-key", server.URL, "MOBTCH")
	msg := Message{Phone: "9876543210", Code: "482913", Text: Render("", "482913")}
	assert.NoError(t, client.Send(context.Background(), msg))
}

func TestSMSLocalClient_SendMissingAPIKey(t *testing.T) {
	err := NewSMSLocalClient("", "http://unused", "").Send(context.Background(), Message{Phone: "9876543210", Code: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestSMSLocalClient_SendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	err := NewSMSLocalClient("k", server.URL, "").Send(context.Background(), Message{Phone: "9876543210", Code: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestSMSLocalClient_SendHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewSMSLocalClient("k", server.URL, "").Send(ctx, Message{Phone: "9876543210", Code: "1"}))
}

func TestWhatsAppClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body whatsAppRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			assert.Equal(t, "919876543210", body.To)
			assert.Equal(t, "otp_verification", body.Template)
			assert.Equal(t, []string{"482913"}, body.Variables)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewWhatsAppClient("wa-key", server.URL, "otp_verification")
	assert.NoError(t, client.Send(context.Background(), Message{Phone: "9876543210", Code: "482913"}))
}

func TestWhatsAppClient_NotConfigured(t *testing.T) {
	assert.Error(t, NewWhatsAppClient("", "", "t").Send(context.Background(), Message{}))
}

func TestRender(t *testing.T) {
	cases := []struct {
		template string
		want     string
	}{
		{"", "Your Mobitech CRM verification code is 482913. It is valid for 5 minutes."},
		{"Code: {otp}", "Code: 482913"},
		{"Your code is", "Your code is 482913"},
		{"{otp} is your code, {otp}", "482913 is your code, 482913"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Render(tc.template, "482913"), "template %q", tc.template)
	}
}
