package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alex-galey/docking-mcp/pkg/config"
)

// corsPolicy is a CORSConfig with its response headers pre-rendered.
type corsPolicy struct {
	origins []string
	methods string
	headers string
	maxAge  string
}

func newCORSPolicy(cfg *config.CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins: cfg.AllowedOrigins,
		methods: strings.Join(cfg.AllowedMethods, ", "),
		headers: strings.Join(cfg.AllowedHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

func (p *corsPolicy) apply(h http.Header, origin string) {
	switch {
	case len(p.origins) == 0:
		h.Set("Access-Control-Allow-Origin", "*")
	case isOriginAllowed(origin, p.origins):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	}
	setIfNotEmpty(h, "Access-Control-Allow-Methods", p.methods)
	setIfNotEmpty(h, "Access-Control-Allow-Headers", p.headers)
	setIfNotEmpty(h, "Access-Control-Max-Age", p.maxAge)
}

func setIfNotEmpty(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// CORSMiddleware adds CORS headers to the SSE endpoints and answers
// preflight requests. A nil or disabled config passes requests through.
func CORSMiddleware(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy.apply(w.Header(), r.Header.Get("Origin"))
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed matches origin against exact origins, "*" and "*.domain"
// entries; the wildcard form matches any subdomain of domain on any port.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if suffix, ok := strings.CutPrefix(allowed, "*"); ok && strings.HasPrefix(suffix, ".") && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
