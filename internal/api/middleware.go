package api

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/clawsec/core/internal/clock"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// withRequestID assigns a ULID-based request id to every inbound request
// (SPEC_FULL.md §1.2) and echoes it back via X-Request-ID. crypto/rand.Reader
// is safe for concurrent use, unlike ulid.Monotonic's reader.
func withRequestID(c clock.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = ulid.MustNew(ulid.Timestamp(c.Now()), rand.Reader).String()
			}
			w.Header().Set("X-Request-ID", id)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// withLogging logs one structured line per request, grounded on the
// teacher's slog-everywhere convention.
func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"requestId", requestIDFrom(r),
				"durationMs", time.Since(start).Milliseconds(),
			)
		})
	}
}

// withRecovery converts a handler panic into a 500 Problem Detail instead of
// crashing the process (spec §7 "surfaced to the caller, never a crash").
func withRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panicked", "panic", rec, "path", r.URL.Path)
					writeInternal(w, r, logger, nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// visitor tracks a per-IP rate limiter, adapted from the teacher's
// GlobalRateLimiter (pkg/api/middleware.go).
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-session request rate (SPEC_FULL.md §1.2,
// golang.org/x/time/rate).
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	stop     chan struct{}
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) Stop() { close(rl.stop) }

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: time.Now()}
		rl.visitors[key] = v
		return v.limiter
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = strings.Trim(r.RemoteAddr, "[]")
		}
		if !rl.getVisitor(ip).Allow() {
			writeTooManyRequests(w, r, 1)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthConfig configures optional JWT-bearer auth on the two operator
// endpoints (approve/deny). Disabled by default; enabling it without a
// signing key is a configuration error the caller must catch at startup.
type AuthConfig struct {
	Enabled bool
	Secret  []byte
}

// withAuth enforces a bearer JWT on operator endpoints when enabled.
func withAuth(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(header, prefix)
			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return cfg.Secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				writeUnauthorized(w, r, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
