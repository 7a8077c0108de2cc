package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPGateway(t *testing.T) {
	config := HTTPConfig{
		APIURL:             "https://sms.example.com/api/v2/",
		Username:           "testuser",
		Password:           "testpass",
		Mask:               "TestMask",
		DefaultCountryCode: "60",
	}

	gateway := NewHTTPGateway(config)

	assert.NotNil(t, gateway)
	assert.Equal(t, "https://sms.example.com/api/v2", gateway.apiURL)
	assert.Equal(t, config.Username, gateway.username)
	assert.Equal(t, config.Mask, gateway.mask)
	assert.NotNil(t, gateway.client)
}

func TestFormatMSISDN(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{name: "National format", input: "0123456789", expected: "60123456789"},
		{name: "With country code", input: "60123456789", expected: "60123456789"},
		{name: "With plus", input: "+60 12-345 6789", expected: "60123456789"},
		{name: "Without leading zero", input: "123456789", expected: "60123456789"},
		{name: "Eleven digit national", input: "01123456789", expected: "601123456789"},
		{name: "No digits", input: "abc", expectError: true},
		{name: "Too short", input: "0123", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := FormatMSISDN(tt.input, "60")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func newTestServer(t *testing.T, logins *int32, sent *SendRequest, sendStatus string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			atomic.AddInt32(logins, 1)
			var req LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Password != "secret" {
				json.NewEncoder(w).Encode(LoginResponse{Status: "failed", Comment: "bad credentials", ErrCode: "104"})
				return
			}
			json.NewEncoder(w).Encode(LoginResponse{Status: "success", Token: "tok-123", Expiration: 3600})
		case "/sms":
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(sent))
			json.NewEncoder(w).Encode(SendResponse{Status: sendStatus, Comment: "rejected", ErrCode: "2001"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestHTTPGateway_SendMessage(t *testing.T) {
	t.Run("logs in once and sends", func(t *testing.T) {
		var logins int32
		var sent SendRequest
		server := newTestServer(t, &logins, &sent, "success")
		defer server.Close()

		gateway := NewHTTPGateway(HTTPConfig{APIURL: server.URL, Username: "u", Password: "secret", Mask: "SmartTransit", DefaultCountryCode: "60"})

		require.NoError(t, gateway.SendMessage(context.Background(), "0123456789", "hello"))
		require.NoError(t, gateway.SendMessage(context.Background(), "0123456789", "again"))

		assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
		require.Len(t, sent.MSISDN, 1)
		assert.Equal(t, "60123456789", sent.MSISDN[0].Mobile)
		assert.Equal(t, "again", sent.Message)
		assert.Equal(t, "SmartTransit", sent.SourceAddress)
	})

	t.Run("login failure", func(t *testing.T) {
		var logins int32
		var sent SendRequest
		server := newTestServer(t, &logins, &sent, "success")
		defer server.Close()

		gateway := NewHTTPGateway(HTTPConfig{APIURL: server.URL, Username: "u", Password: "wrong", DefaultCountryCode: "60"})

		err := gateway.SendMessage(context.Background(), "0123456789", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad credentials")
	})

	t.Run("send rejected", func(t *testing.T) {
		var logins int32
		var sent SendRequest
		server := newTestServer(t, &logins, &sent, "failed")
		defer server.Close()

		gateway := NewHTTPGateway(HTTPConfig{APIURL: server.URL, Username: "u", Password: "secret", DefaultCountryCode: "60"})

		err := gateway.SendMessage(context.Background(), "0123456789", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2001")
	})
}

func TestHTTPGateway_GetName(t *testing.T) {
	assert.Equal(t, "HTTP SMS Gateway", NewHTTPGateway(HTTPConfig{}).GetName())
}
