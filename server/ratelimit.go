package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-teamchat/internal/config"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// loginLimiter throttles login attempts per client IP with a token bucket.
type loginLimiter struct {
	limit   rate.Limit
	burst   int
	proxies config.TrustedProxies

	mu      sync.Mutex
	clients map[string]*limiterEntry
	swept   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(perMinute int, proxies config.TrustedProxies) *loginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &loginLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		proxies: proxies,
		clients: make(map[string]*limiterEntry),
	}
}

// Allow takes a token for the client of r.
func (l *loginLimiter) Allow(r *http.Request) bool {
	now := time.Now()
	key := clientIP(r, l.proxies)

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > limiterIdleTTL {
		for k, e := range l.clients {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	e, ok := l.clients[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// clientIP is the peer address. Behind a trusted proxy it is the nearest X-Forwarded-For hop
// that is not itself a trusted proxy, so a client cannot choose its own key.
func clientIP(r *http.Request, proxies config.TrustedProxies) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if !proxies.Contains(ip) {
		return ip
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		ip = hop
		if !proxies.Contains(hop) {
			break
		}
	}
	return ip
}
