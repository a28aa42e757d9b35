package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/jrschumacher/complyhub/internal/httputil"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/jrschumacher/complyhub/internal/ratelimit"
)

const rateLimitExceededMessage = "Too many attempts. Please wait before trying again."

// RateLimitKeyFunc derives the limiter key for a request.
type RateLimitKeyFunc func(*http.Request) string

// ClientIPKey keys requests by scope and client address, as resolved by
// ExtractIP with the given trusted proxies.
func ClientIPKey(scope string, trustedProxies []netip.Prefix) RateLimitKeyFunc {
	return func(r *http.Request) string {
		return scope + "_" + ExtractIP(r, trustedProxies)
	}
}

// RateLimit rejects requests with 429 once key has used its attempts in
// window. A nil limiter disables the check.
func RateLimit(limiter *ratelimit.Limiter, key RateLimitKeyFunc, window time.Duration, maxAttempts int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			k := key(r)
			if limiter.IsRateLimited(r.Context(), k, window, maxAttempts) {
				retry := limiter.RetryAfter(r.Context(), k, window, maxAttempts)
				httputil.WriteTooManyRequests(w, retry, rateLimitExceededMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseTrustedProxies turns IPs and CIDRs into prefixes. Invalid entries are
// logged and skipped.
func ParseTrustedProxies(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if p, err := netip.ParsePrefix(entry); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		logger.Warn("Ignoring invalid trusted proxy", "entry", entry)
	}
	return out
}

// ExtractIP returns the client address. X-Forwarded-For and X-Real-IP are
// only read when the peer is a trusted proxy; the forwarded chain is walked
// from the right and the first untrusted hop wins.
func ExtractIP(r *http.Request, trustedProxies []netip.Prefix) string {
	peer := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !isTrusted(peer, trustedProxies) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				return peer
			}
			if !isTrusted(hop, trustedProxies) || i == 0 {
				return hop
			}
		}
	}

	if xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); xRealIP != "" {
		if _, err := netip.ParseAddr(xRealIP); err == nil {
			return xRealIP
		}
	}
	return peer
}

func isTrusted(ip string, trustedProxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
