package request

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"sanctum/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var captured *http.Request
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
	}))

	t.Run("generates request id and captures metadata", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.10:5555"
		r.Header.Set("User-Agent", "test-agent")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		ctx := captured.Context()
		assert.NotEmpty(t, requestcontext.RequestID(ctx))
		assert.Equal(t, requestcontext.RequestID(ctx), w.Header().Get(HeaderRequestID))
		assert.Equal(t, "192.0.2.10", requestcontext.ClientIP(ctx))
		assert.Equal(t, "test-agent", requestcontext.UserAgent(ctx))
	})

	t.Run("keeps inbound request id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderRequestID, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), r)
		assert.Equal(t, "abc-123", requestcontext.RequestID(captured.Context()))
	})
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", " 203.0.113.9 ")
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestIsConfidential(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsConfidential(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, IsConfidential(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	assert.True(t, IsConfidential(r))
}
