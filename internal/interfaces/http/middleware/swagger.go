package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SwaggerConfig controls access to the API documentation endpoints
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	// AllowedIPs accepts single addresses and CIDR ranges. Empty means
	// no IP restriction.
	AllowedIPs []string
}

// ipAllowlist holds pre-parsed addresses and networks so per-request
// checks do no string parsing
type ipAllowlist struct {
	ips  []net.IP
	nets []*net.IPNet
}

func newIPAllowlist(entries []string) ipAllowlist {
	var list ipAllowlist
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				list.nets = append(list.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			list.ips = append(list.ips, ip)
		}
	}
	return list
}

func (l ipAllowlist) empty() bool {
	return len(l.ips) == 0 && len(l.nets) == 0
}

func (l ipAllowlist) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SwaggerProtection gates the documentation routes. A disabled config
// hides them behind 404; otherwise the IP allowlist is checked first
// and then, when RequireAuth is set, the JWT middleware runs.
func SwaggerProtection(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) gin.HandlerFunc {
	allowlist := newIPAllowlist(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "API documentation is not available",
			})
			return
		}

		if !allowlist.empty() && !allowlist.contains(clientIP(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Access to API documentation is restricted",
			})
			return
		}

		if cfg.RequireAuth && jwtMiddleware != nil {
			jwtMiddleware(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

// clientIP resolves the caller address, trusting gin's proxy handling
// and falling back to the raw remote address
func clientIP(c *gin.Context) net.IP {
	if ip := net.ParseIP(c.ClientIP()); ip != nil {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}
