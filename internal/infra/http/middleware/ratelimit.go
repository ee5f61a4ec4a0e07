package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stagepass/api/internal/config"
	"github.com/stagepass/api/internal/metrics"
	"github.com/stagepass/api/pkg/apierror"
	"github.com/stagepass/api/pkg/logger"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a per-IP token bucket. Returns the middleware and
// a stop function that ends the stale-visitor sweeper.
func RateLimit(cfg *config.RateLimitConfig, log *logger.Logger) (func(http.Handler) http.Handler, func()) {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }, func() {}
	}

	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
		done     = make(chan struct{})
	)

	// Sweep idle entries so the map does not grow unbounded.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				for ip, v := range visitors {
					if time.Since(v.lastSeen) > 3*time.Minute {
						delete(visitors, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			visitors[ip] = v
		}
		v.lastSeen = time.Now()
		return v.limiter
	}

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiterFor(ip).Allow() {
				metrics.RateLimitRejectionsTotal.Inc()
				log.Warn("request rate limited", "remote_addr", ip, "path", r.URL.Path)
				apierror.New(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	return mw, func() { close(done) }
}
