package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"notevault-server/internal/domain"
	"notevault-server/internal/ratelimit"
	"notevault-server/pkg/response"
)

// KeyFunc derives the counter key for a request. Separate routes use
// separate key prefixes so an attacker hammering login cannot starve sync.
type KeyFunc func(r *http.Request) string

// KeyByIP buckets by client address, trusting proxy headers over RemoteAddr.
func KeyByIP(prefix string) KeyFunc {
	return func(r *http.Request) string {
		return prefix + ":" + clientIP(r)
	}
}

// KeyBySession buckets by a digest of the raw session cookie so the limiter
// can run in front of auth without verifying the token first. Requests
// without a cookie fall back to the client address.
func KeyBySession(prefix string) KeyFunc {
	return func(r *http.Request) string {
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			sum := sha256.Sum256([]byte(cookie.Value))
			return prefix + ":" + hex.EncodeToString(sum[:8])
		}
		return prefix + ":" + clientIP(r)
	}
}

// RateLimitMiddleware enforces a fixed-window limit via the configured
// strategy. Every response carries the X-RateLimit headers; a denial renders
// RATE_LIMITED with Retry-After. A strategy error (both counters down) fails
// open: availability of the vault beats precision of the limit.
func RateLimitMiddleware(strategy ratelimit.Strategy, limit int, window time.Duration, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := strategy.Check(r.Context(), keyFn(r), limit, window, 1)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

			if !result.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())+1))
				response.Error(w, http.StatusTooManyRequests, domain.KindRateLimited, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
