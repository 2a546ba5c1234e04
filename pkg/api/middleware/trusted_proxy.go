package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ParseTrustedProxies parses a comma-separated list of CIDR ranges or
// bare IPs. Invalid entries are returned as errors; valid ones are kept.
func ParseTrustedProxies(list string) ([]*net.IPNet, []error) {
	var (
		networks []*net.IPNet
		errs     []error
	)

	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				errs = append(errs, fmt.Errorf("invalid trusted proxy IP %q", entry))
				continue
			}
			if ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid trusted proxy CIDR %q: %w", entry, err))
			continue
		}
		networks = append(networks, network)
	}

	return networks, errs
}

// IsTrustedProxyIn checks if the given remote address is in the provided networks.
func IsTrustedProxyIn(remoteAddr string, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return false
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the caller's address. X-Real-IP and the leftmost
// X-Forwarded-For entry are honoured only when the direct peer is a
// trusted proxy.
func ClientIP(r *http.Request, trusted []*net.IPNet) string {
	if IsTrustedProxyIn(r.RemoteAddr, trusted) {
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPFunc adapts ClientIP for RateLimit.
func ClientIPFunc(trusted []*net.IPNet) ClientIDFunc {
	return func(r *http.Request) string { return ClientIP(r, trusted) }
}
