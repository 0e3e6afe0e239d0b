package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kiranshivaraju/scribe/internal/api/response"
	"github.com/kiranshivaraju/scribe/internal/cache"
	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
	// maxLocalCallers bounds the in-process limiter table; it is reset when full.
	maxLocalCallers = 10000
)

// RateLimit limits each caller to a number of requests per minute. Callers
// are identified by API key prefix when auth ran, otherwise by client IP.
//
// With a cache the count is a fixed one-minute window shared by every
// server instance. Without one each caller gets an in-process token bucket.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
	now            func() time.Time

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRateLimit creates a RateLimit backed by c.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin, now: time.Now}
}

// NewLocalRateLimit creates a RateLimit that keeps its state in memory.
func NewLocalRateLimit(requestsPerMin int) *RateLimit {
	return NewRateLimit(nil, requestsPerMin)
}

// Limit applies rate limiting to next.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)

		var allowed bool
		if rl.cache != nil {
			var ok bool
			allowed, ok = rl.allowShared(w, r, caller)
			if !ok {
				// On Redis error, allow the request (fail open)
				next.ServeHTTP(w, r)
				return
			}
		} else {
			allowed = rl.allowLocal(w, caller)
		}

		if !allowed {
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimit) allowShared(w http.ResponseWriter, r *http.Request, caller string) (allowed, ok bool) {
	now := rl.now()
	window := now.Truncate(rateWindow)
	key := cache.RateLimitKey(caller, window.Unix())

	count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
	if err != nil {
		return false, false
	}

	remaining := max(rl.requestsPerMin-int(count), 0)
	reset := window.Add(rateWindow)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

	if count > int64(rl.requestsPerMin) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter(reset.Sub(now))))
		return false, true
	}
	return true, true
}

func (rl *RateLimit) allowLocal(w http.ResponseWriter, caller string) bool {
	now := rl.now()
	lim := rl.limiter(caller)

	res := lim.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(int(lim.TokensAt(now)), 0)))

	if delay > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter(delay)))
		return false
	}
	return true
}

func (rl *RateLimit) limiter(caller string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.local[caller]
	if !ok {
		if rl.local == nil || len(rl.local) >= maxLocalCallers {
			rl.local = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Every(rateWindow/time.Duration(rl.requestsPerMin)), rl.requestsPerMin)
		rl.local[caller] = lim
	}
	return lim
}

func callerID(r *http.Request) string {
	if prefix, ok := getKeyPrefix(r); ok {
		return prefix
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func retryAfter(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}
