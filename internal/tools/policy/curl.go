package policy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// dnsResolveTimeout bounds how long CheckURL waits on a hostname lookup
// before treating the resolution as failed.
const dnsResolveTimeout = 5 * time.Second

// CurlGuard validates curl tool requests against SSRF: only https by
// default, and never to loopback, link-local, or RFC1918 private addresses
// unless explicitly allow-listed.
type CurlGuard struct {
	allowHTTP    bool
	allowedHosts map[string]bool
	maxBytes     int64
}

// NewCurlGuard constructs a guard. allowHTTP permits plain-http targets
// (default denied); allowedHosts bypasses the private/loopback check for
// specific hostnames (e.g. an internal mirror the user explicitly trusts);
// maxBytes caps response size (0 means use the tool's own default).
func NewCurlGuard(allowHTTP bool, allowedHosts []string, maxBytes int64) *CurlGuard {
	hosts := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		hosts[strings.ToLower(h)] = true
	}
	return &CurlGuard{allowHTTP: allowHTTP, allowedHosts: hosts, maxBytes: maxBytes}
}

// CheckURL validates rawURL before the curl tool is allowed to dial it. For
// a non-literal hostname this resolves every address it maps to and rejects
// the request if any of them is loopback/link-local/private, closing the
// DNS-rebinding gap a suffix-only hostname check would leave open.
func (g *CurlGuard) CheckURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !g.allowHTTP {
			return fmt.Errorf("plain http is not permitted: %s", rawURL)
		}
	default:
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("url has no host: %s", rawURL)
	}
	if g.allowedHosts[strings.ToLower(host)] {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateOrLoopback(ip) {
			return fmt.Errorf("refusing request to private/loopback address %s", host)
		}
		return nil
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") ||
		strings.HasSuffix(lower, ".internal") || strings.HasSuffix(lower, ".local") {
		return fmt.Errorf("refusing request to internal hostname %s", host)
	}

	resolveCtx, cancel := context.WithTimeout(ctx, dnsResolveTimeout)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupIPAddr(resolveCtx, host)
	if err != nil {
		return fmt.Errorf("resolve host %s: %w", host, err)
	}
	for _, addr := range addrs {
		if isPrivateOrLoopback(addr.IP) {
			return fmt.Errorf("refusing request to %s: resolves to private/loopback address %s", host, addr.IP)
		}
	}

	return nil
}

// IsAllowedHost reports whether host is on the guard's explicit allowlist,
// bypassing the private/loopback check.
func (g *CurlGuard) IsAllowedHost(host string) bool {
	return g.allowedHosts[strings.ToLower(host)]
}

// MaxBytes returns the configured response cap, or def if none was set.
func (g *CurlGuard) MaxBytes(def int64) int64 {
	if g.maxBytes > 0 {
		return g.maxBytes
	}
	return def
}

func isPrivateOrLoopback(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		// Cloud metadata endpoint, denied independent of RFC1918 status.
		if ip4[0] == 169 && ip4[1] == 254 {
			return true
		}
	}
	return false
}
