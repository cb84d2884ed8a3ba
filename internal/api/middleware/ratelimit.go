package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// requests larger than this are not inspected for a session id
const maxProbeBody = 1 << 20

type rateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	logger *zap.Logger
}

// RateLimit enforces a minimum interval between requests per client, keyed
// by ip|session|path. A window of 0 disables it.
func RateLimit(window time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := &rateLimiter{
		window: window,
		last:   make(map[string]time.Time),
		logger: logger,
	}
	return limiter.handle
}

func (l *rateLimiter) handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.window <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := strings.Join([]string{clientIP(r), sessionKey(r), r.URL.Path}, "|")

		now := time.Now()
		l.mu.Lock()
		last, seen := l.last[key]
		if seen && now.Sub(last) < l.window {
			l.mu.Unlock()
			l.logger.Warn("rate limit hit",
				zap.String("key", key),
				zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`)) //nolint:errcheck
			return
		}
		l.last[key] = now
		l.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Real-IP"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sessionKey peeks at the request body for the session id so clients behind
// a shared IP are limited independently. The body is restored for the
// handler.
func sessionKey(r *http.Request) string {
	if r.Body == nil {
		return "0"
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxProbeBody))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "0"
	}
	var probe struct {
		SessionID string `json:"sessionId"`
	}
	if json.Unmarshal(raw, &probe) != nil || probe.SessionID == "" {
		return "0"
	}
	return probe.SessionID
}
