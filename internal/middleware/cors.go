package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware reflects the request origin for browsers loading the
// dashboard from a different host than the API. Origins come from the
// CORS_ALLOWED_ORIGINS config value; a "*" entry (the default) allows any.
type CORSMiddleware struct {
	allowedOrigins map[string]struct{}
	allowAll       bool
}

// NewCORSMiddleware builds the middleware from the configured origin list.
// An empty list or a "*" entry allows every origin.
func NewCORSMiddleware(allowedOrigins ...string) *CORSMiddleware {
	m := &CORSMiddleware{
		allowedOrigins: make(map[string]struct{}, len(allowedOrigins)),
		allowAll:       len(allowedOrigins) == 0,
	}
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			m.allowAll = true
			continue
		}
		if o != "" {
			m.allowedOrigins[o] = struct{}{}
		}
	}
	return m
}

// Wrap adds CORS headers to cross-origin requests and short-circuits
// preflight requests.
func (c *CORSMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && c.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) originAllowed(origin string) bool {
	if c.allowAll {
		return true
	}
	_, ok := c.allowedOrigins[origin]
	return ok
}
