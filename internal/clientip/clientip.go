// Package clientip extracts the client IP address from HTTP requests.
//
// Proxy headers are only consulted when the resolver is told a proxy in
// front of the server overwrites them. In that case they are checked in
// this order:
//  1. CF-Connecting-IP (Cloudflare)
//  2. X-Forwarded-For (leftmost entry)
//  3. X-Real-IP (nginx)
//
// Otherwise, and whenever no header parses as an IP address, RemoteAddr is
// used. A directly exposed server must not trust the headers, or clients
// can pick their own rate limit key.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Resolver resolves the client IP for a request. The zero value trusts
// only RemoteAddr.
type Resolver struct {
	trustProxyHeaders bool
}

// New creates a Resolver. Set trustProxyHeaders only when every request
// arrives through a proxy that overwrites the forwarding headers.
func New(trustProxyHeaders bool) Resolver {
	return Resolver{trustProxyHeaders: trustProxyHeaders}
}

// IP returns the normalized client IP for r. It never returns an empty
// string when RemoteAddr is set.
func (res Resolver) IP(r *http.Request) string {
	if res.trustProxyHeaders {
		if ip := fromHeaders(r); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		host = r.RemoteAddr
	}
	if ip := parseIP(host); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func fromHeaders(r *http.Request) string {
	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	// X-Forwarded-For can contain multiple IPs: client, proxy1, proxy2
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}

	return parseIP(r.Header.Get("X-Real-IP"))
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
