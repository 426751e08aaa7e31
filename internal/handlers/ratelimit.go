package handlers

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// throttle returns a 429 when the client has exhausted its budget for scope. A nil
// limiter allows every request.
func throttle(limiter RateLimiter, proxies []netip.Prefix, r *http.Request, scope, action string) error {
	if limiter == nil || limiter.Allow(rateLimitKey(r, proxies, scope)) {
		return nil
	}
	return newAPIError(http.StatusTooManyRequests, fmt.Sprintf("too many %s attempts", action))
}

func rateLimitKey(r *http.Request, proxies []netip.Prefix, scope string) string {
	ip := clientIP(r, proxies)
	if scope == "" {
		return ip
	}
	return scope + ":" + ip
}

// clientIP returns the peer address unless the peer is a trusted proxy. Behind a
// trusted proxy it takes the nearest untrusted X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, proxies []netip.Prefix) string {
	peer := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(peer); err == nil && host != "" {
		peer = host
	}
	if !trusted(peer, proxies) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				continue
			}
			if !trusted(hop, proxies) {
				return hop
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if _, err := netip.ParseAddr(realIP); err == nil {
			return realIP
		}
	}
	return peer
}

func trusted(ip string, proxies []netip.Prefix) bool {
	if len(proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
