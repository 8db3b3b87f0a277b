package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimit throttles each client address with its own token bucket. Buckets
// idle for ten minutes are evicted.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	buckets := cache.New(10*time.Minute, 20*time.Minute)

	limiterFor := func(key string) *rate.Limiter {
		if v, ok := buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
		l := rate.NewLimiter(rate.Limit(rps), burst)
		if err := buckets.Add(key, l, cache.DefaultExpiration); err != nil {
			// lost the race to another request
			if v, ok := buckets.Get(key); ok {
				return v.(*rate.Limiter)
			}
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			l := limiterFor(key)
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			buckets.Set(key, l, cache.DefaultExpiration)
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
