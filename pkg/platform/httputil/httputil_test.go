package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sanctum/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits message and reason", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed").WithReason("DB_DOWN"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		assert.Equal(t, "INTERNAL_FAULT", body["code"])
		assert.NotContains(t, body, "message")
	})

	t.Run("integrity error is reported as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeIntegrity, "checksum mismatch"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "checksum")
	})

	t.Run("plain error is treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "boom")
	})

	t.Run("forbidden includes reason and details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeForbidden, "access denied").
			WithReason("ACCESS_CONTROL_FAILED:OWNER_ONLY").
			WithDetails(map[string]any{"data_type": "sacred"}))

		assert.Equal(t, http.StatusForbidden, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "forbidden", body.Error)
		assert.Equal(t, "ACCESS_CONTROL_FAILED:OWNER_ONLY", body.Code)
		assert.Equal(t, "sacred", body.Details["data_type"])
	})

	t.Run("rate limited maps to 429", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeRateLimited, "slow down").WithReason("RATE_EXCEEDED"))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body decodes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
		w := httptest.NewRecorder()
		got, ok := DecodeJSON[payload](w, r, nil)
		require.True(t, ok)
		assert.Equal(t, "a", got.Name)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`))
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[payload](w, r, nil)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
