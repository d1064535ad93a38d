package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/pkg/httpext"
	"github.com/jyotchat/jyotchat/pkg/logger"
	"github.com/jyotchat/jyotchat/pkg/ratelimit"
)

func RateLimit(limitKey string) func(http.Handler) http.Handler {
	cfg := config.GetRateLimitConfig(limitKey)
	limiter := ratelimit.NewLimiter(cfg.Window, cfg.MaxHits)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if !limiter.Allow(ip) {
				logger.Warn(logger.MIDDLEWARE, "Rate limit exceeded for %s on %s", ip, limitKey)
				rateLimited.WithLabelValues(limitKey).Inc()
				httpext.JsonError(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP uses the first X-Forwarded-For hop if behind a proxy, otherwise
// the remote address without its port
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
