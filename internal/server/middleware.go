package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// withCORS answers preflight requests and sets CORS headers on the rest.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	origin := s.corsOrigin
	if origin == "" {
		origin = "*"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// instrumented observes request latency under the route pattern, so that
// per-upload paths do not explode label cardinality.
func instrumented(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		elapsed := time.Since(start)

		httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed.Round(time.Millisecond))
	}
}

// limited rejects clients over their request rate or daily quota. The
// declared body size counts against the data quota.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.rateLimiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		err := s.rateLimiter.CheckRateLimit(client, max(r.ContentLength, 0))
		if err == nil {
			if perMin := s.rateLimiter.requestsPerMinute; perMin > 0 {
				used := s.rateLimiter.GetUsage(client).RequestsLastMinute
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(perMin-used, 0)))
			}
			next(w, r)
			return
		}
		slog.Warn("Request rejected by rate limiter", "client", client, "error", err)
		writeRejection(w, err)
	}
}

// RateLimitResponse is the body of a 429 caused by a request rate limit.
type RateLimitResponse struct {
	Error      string  `json:"error"`
	Type       string  `json:"type"`
	Limit      int     `json:"limit"`
	RetryAfter float64 `json:"retry_after"`
}

// QuotaResponse is the body of a 429 caused by an exhausted daily quota.
type QuotaResponse struct {
	Error  string `json:"error"`
	Type   string `json:"type"`
	Limit  int64  `json:"limit"`
	Used   int64  `json:"used"`
	Resets string `json:"resets"`
}

// writeRejection turns a limiter error into a 429 with descriptive headers.
// Any other error is reported as a 500.
func writeRejection(w http.ResponseWriter, err error) {
	var (
		rle  *RateLimitError
		qe   *QuotaExceededError
		body any
	)
	h := w.Header()
	h.Set("Content-Type", "application/json")

	switch {
	case errors.As(err, &rle):
		rateLimitHits.WithLabelValues(rle.Type).Inc()
		h.Set("X-RateLimit-Type", rle.Type)
		h.Set("X-RateLimit-Limit", strconv.Itoa(rle.Limit))
		h.Set("Retry-After", strconv.Itoa(int(rle.RetryAfter.Round(time.Second).Seconds())))
		w.WriteHeader(http.StatusTooManyRequests)
		body = RateLimitResponse{
			Error:      rle.Error(),
			Type:       rle.Type,
			Limit:      rle.Limit,
			RetryAfter: rle.RetryAfter.Seconds(),
		}
	case errors.As(err, &qe):
		rateLimitHits.WithLabelValues(qe.Type).Inc()
		h.Set("X-Quota-Type", qe.Type)
		h.Set("X-Quota-Limit", strconv.FormatInt(qe.Limit, 10))
		h.Set("X-Quota-Used", strconv.FormatInt(qe.Used, 10))
		h.Set("X-Quota-Resets", qe.Resets.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
		body = QuotaResponse{
			Error:  qe.Error(),
			Type:   qe.Type,
			Limit:  qe.Limit,
			Used:   qe.Used,
			Resets: qe.Resets.Format(time.RFC3339),
		}
	default:
		w.WriteHeader(http.StatusInternalServerError)
		body = ErrorResponse{Error: "rate limiting check failed"}
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode rate limit response", "error", err)
	}
}

// clientAddr identifies the caller for rate limiting, preferring proxy
// headers over the socket address.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
