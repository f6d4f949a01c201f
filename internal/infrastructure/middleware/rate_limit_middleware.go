package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"boardchat/pkg/cache"
	"boardchat/pkg/config"
	"boardchat/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiterStore stores per-key (for example, per IP) rate limiters.
// Every lookup pushes the key's expiry out by idleTTL; the cache janitor
// drops limiters for keys that went quiet.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  *cache.Cache[*rate.Limiter]
	rate      rate.Limit
	burstSize int
}

func newRateLimiterStore(r rate.Limit, burst int, idleTTL time.Duration) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  cache.New[*rate.Limiter](idleTTL),
		rate:      r,
		burstSize: burst,
	}
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters.Get(key)
	if !exists {
		limiter = rate.NewLimiter(s.rate, s.burstSize)
	}
	s.limiters.Set(key, limiter)
	return limiter
}

func (s *rateLimiterStore) size() int {
	return s.limiters.Size()
}

// clientIP extracts the IP part from the request's remote address.
func clientIP(r *http.Request) string {
	// Try X-Forwarded-For first (behind proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple IP-based rate limiting.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	rps := cfg.RateLimiting.HTTP.RequestsPerSecond
	burst := cfg.RateLimiting.HTTP.Burst

	store := newRateLimiterStore(rate.Limit(rps), burst, cfg.RateLimiting.HTTP.IdleTTL)

	var globalSem chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		globalSem = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		// Global concurrent requests throttling
		if globalSem != nil {
			select {
			case globalSem <- struct{}{}:
				defer func() { <-globalSem }()
			default:
				AbortWithError(c, errors.NewAppError(errors.ErrCodeServiceUnavailable, "too many concurrent requests", http.StatusServiceUnavailable))
				return
			}
		}

		ip := clientIP(c.Request)
		limiter := store.getLimiter(ip)
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			AbortWithError(c, errors.NewRateLimitError())
			return
		}
		c.Next()
	}
}


