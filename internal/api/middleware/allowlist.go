package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"
)

// IPAllowlist restricts an endpoint to the gateway's source addresses.
// Requests from anywhere else get a plain 404, indistinguishable from a
// missing route. Entries may be single IPs or CIDR ranges. An empty
// list allows everyone.
func IPAllowlist(entries []string) func(http.Handler) http.Handler {
	var ips []net.IP
	var nets []*net.IPNet
	for _, e := range entries {
		if _, ipNet, err := net.ParseCIDR(e); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		if ip := net.ParseIP(e); ip != nil {
			ips = append(ips, ip)
			continue
		}
		zap.L().Warn("ignoring unparsable allowlist entry", zap.String("entry", e))
	}

	allowed := func(remote net.IP) bool {
		if len(ips) == 0 && len(nets) == 0 {
			return true
		}
		for _, ip := range ips {
			if ip.Equal(remote) {
				return true
			}
		}
		for _, n := range nets {
			if n.Contains(remote) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			remote := net.ParseIP(host)
			if remote == nil || !allowed(remote) {
				zap.L().Warn("callback from unlisted address", zap.String("remote", r.RemoteAddr))
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
