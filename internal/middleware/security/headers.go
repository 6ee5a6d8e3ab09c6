package security

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// HeadersConfig holds the response headers set on every API reply.
type HeadersConfig struct {
	// Static is written verbatim on every response.
	Static map[string]string

	// HSTS, sent only on TLS requests when MaxAge is positive.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	// TrustForwardedProto treats X-Forwarded-Proto: https from a private
	// proxy as TLS when deciding on HSTS.
	TrustForwardedProto bool
}

// DefaultHeadersConfig locks down a JSON-only API: nothing may be framed,
// sniffed, cached or loaded from the responses.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		Static: map[string]string{
			"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "no-referrer",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-site",
			"Cache-Control":                "no-store",
		},
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		TrustForwardedProto:   true,
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{config: config}
	if config.HSTSMaxAge > 0 {
		parts := []string{"max-age=" + strconv.Itoa(config.HSTSMaxAge)}
		if config.HSTSIncludeSubdomains {
			parts = append(parts, "includeSubDomains")
		}
		if config.HSTSPreload {
			parts = append(parts, "preload")
		}
		h.hsts = strings.Join(parts, "; ")
	}
	return h
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for name, value := range h.config.Static {
			headers.Set(name, value)
		}
		if h.hsts != "" && h.isTLS(r) {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) isTLS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if !h.config.TrustForwardedProto || !isPrivateAddr(remoteHost(r)) {
		return false
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isPrivateAddr(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && (ip.IsPrivate() || ip.IsLoopback())
}
