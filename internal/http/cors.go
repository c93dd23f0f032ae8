package http

import (
	"net/http"
	"strings"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/config"
)

// CORSMiddleware adds CORS headers for the configured front-desk origins. A "*"
// entry in any list reflects what the request asked for.
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	allowAnyOrigin := contains(cfg.AllowedOrigins, "*")
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			_, listed := origins[origin]
			if !listed && !allowAnyOrigin {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods",
					allowList(cfg.AllowMethods, r.Header.Get("Access-Control-Request-Method")))
				if headers := allowList(cfg.AllowHeaders, r.Header.Get("Access-Control-Request-Headers")); headers != "" {
					w.Header().Set("Access-Control-Allow-Headers", headers)
				}
				w.Header().Set("Access-Control-Max-Age", "3600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowList(configured []string, requested string) string {
	if contains(configured, "*") {
		return requested
	}
	return strings.Join(configured, ", ")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
