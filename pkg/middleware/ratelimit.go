package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/httputil"
	"github.com/utafrali/marketplace/pkg/logger"
)

// RateLimitConfig holds the token bucket parameters applied to each client.
type RateLimitConfig struct {
	RPS   float64
	Burst int

	// IdleTTL is how long an unused bucket is kept before it is evicted.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the limits used when none are configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:     10,
		Burst:   20,
		IdleTTL: 3 * time.Minute,
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketStore keeps one limiter per client key. Stale buckets are swept
// lazily on access at most once per TTL.
type bucketStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	cfg       RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

func newBucketStore(cfg RateLimitConfig) *bucketStore {
	return &bucketStore{
		buckets:   make(map[string]*bucket),
		cfg:       cfg,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *bucketStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cfg.IdleTTL > 0 && now.Sub(s.lastSweep) > s.cfg.IdleTTL {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.cfg.IdleTTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (s *bucketStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit enforces a token bucket per authenticated seller, falling back to
// the client IP for anonymous requests. Rejected requests get 429 RATE_LIMITED.
// A non-positive RPS disables limiting.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	store := newBucketStore(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !store.limiter(key).Allow() {
				logger.FromContext(r.Context()).WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteError(w, r, apperrors.RateLimited(), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id := SellerIDFromContext(r.Context()); id != 0 {
		return "seller:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + clientIP(r)
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// RemoteAddr without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
