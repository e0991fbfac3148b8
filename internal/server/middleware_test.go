package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, want: "203.0.113.7"},
		{name: "single forwarded", headers: map[string]string{"X-Forwarded-For": " 203.0.113.8 "}, want: "203.0.113.8"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, want: "198.51.100.2"},
		{name: "remote addr", remoteAddr: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.9", want: "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			assert.Equal(t, tt.want, clientAddr(req))
		})
	}
}

func TestWithCORS(t *testing.T) {
	s := &Server{}
	called := false
	h := s.withCORS(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodOptions, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, called)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestWriteRejection(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeRejection(w, &RateLimitError{Type: "minute", Limit: 3, RetryAfter: 20 * time.Second})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "20", w.Header().Get("Retry-After"))
		var body RateLimitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "minute", body.Type)
		assert.Equal(t, 20.0, body.RetryAfter)
		assert.Contains(t, body.Error, "rate limit exceeded")
	})

	t.Run("quota", func(t *testing.T) {
		w := httptest.NewRecorder()
		resets := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
		writeRejection(w, &QuotaExceededError{Type: "data", Limit: 100, Used: 90, Resets: resets})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "90", w.Header().Get("X-Quota-Used"))
		assert.Equal(t, resets.Format(http.TimeFormat), w.Header().Get("X-Quota-Resets"))
		var body QuotaResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "2024-05-11T00:00:00Z", body.Resets)
	})

	t.Run("unknown", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeRejection(w, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestLimitedPassesWithoutLimiter(t *testing.T) {
	s := &Server{}
	called := false
	h := s.limited(func(w http.ResponseWriter, r *http.Request) { called = true })

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/detect/", nil))
	assert.True(t, called)
}

func TestInstrumentedKeepsStatus(t *testing.T) {
	h := instrumented("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
