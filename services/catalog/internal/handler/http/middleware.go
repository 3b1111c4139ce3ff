package http

import (
	"mime"
	"net/http"
	"strings"

	"github.com/utafrali/marketplace/pkg/httputil"
)

// ContentTypeJSON rejects product writes whose body is not JSON with 415.
// Requests without a body pass, so DELETE and GET need no header.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasBody(r) {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return r.ContentLength > 0
}

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string
	Environment    string
}

// corsPolicy is CORSConfig resolved once at router construction.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]bool
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{
		anyOrigin: cfg.Environment == "development",
		origins:   make(map[string]bool, len(cfg.AllowedOrigins)),
	}
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[o] = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or "".
func (p corsPolicy) allowOrigin(origin string) string {
	switch {
	case p.anyOrigin:
		return "*"
	case origin != "" && p.origins[origin]:
		return origin
	}
	return ""
}

// CORS lets seller dashboards on other origins call the product API and read
// the pagination headers. Development mode or "*" allows any origin.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if allow := policy.allowOrigin(r.Header.Get("Origin")); allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if allow != "*" {
					h.Add("Vary", "Origin")
				}
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Correlation-ID")
			h.Set("Access-Control-Expose-Headers", "X-Total-Count, X-Total-Pages, Link")
			h.Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
