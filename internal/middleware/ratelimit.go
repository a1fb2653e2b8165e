package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 3 * time.Minute
	limiterSweepEvery = 1024
	limiterMaxClients = 10000
)

type rateErr struct {
	Error string `json:"error"`
}

// ClientLimiter keeps one token bucket per client IP. At most maxClients
// buckets are tracked; once full, unknown clients share the overflow bucket.
type ClientLimiter struct {
	limit      rate.Limit
	burst      int
	maxClients int

	mu        sync.Mutex
	calls     int
	lastSweep time.Time
	clients   map[string]*clientBucket
	overflow  *rate.Limiter
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter returns nil when rps <= 0, which disables limiting.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiter{
		limit:      rate.Limit(rps),
		burst:      burst,
		maxClients: limiterMaxClients,
		clients:    make(map[string]*clientBucket),
		overflow:   rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (l *ClientLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%limiterSweepEvery == 0 {
		l.sweep(now)
	}

	b, ok := l.clients[key]
	if !ok {
		// a full table is swept at most once a second
		if len(l.clients) >= l.maxClients && now.Sub(l.lastSweep) > time.Second {
			l.sweep(now)
		}
		if len(l.clients) >= l.maxClients {
			return l.overflow.AllowN(now, 1)
		}
		b = &clientBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

func (l *ClientLimiter) sweep(now time.Time) {
	l.lastSweep = now
	for k, b := range l.clients {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(l.clients, k)
		}
	}
}

// retryAfter is the number of whole seconds until a token is available.
func (l *ClientLimiter) retryAfter() int {
	return int(math.Ceil(1.0 / float64(l.limit)))
}

// RateLimitMiddleware keys buckets on r.RemoteAddr. Forwarded headers only
// count when a proxy-aware middleware such as chi's RealIP runs first.
func RateLimitMiddleware(l *ClientLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rateErr{Error: "too_many_requests"})
		})
	}
}
