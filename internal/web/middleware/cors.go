package middleware

import (
	"net/http"
	"os"
	"strings"
)

// CORS returns middleware that applies an origin allowlist. The allowlist
// comes from the comma-separated WEB_ALLOWED_ORIGINS environment variable,
// read once when the middleware is built. Localhost origins on any port
// bypass the list so local frontends work without configuration.
func CORS() func(http.Handler) http.Handler {
	allowed := parseAllowedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin := r.Header.Get("Origin"); isOriginAllowed(origin, allowed) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Requested-With")
			h.Set("Access-Control-Max-Age", "86400")

			// Preflight requests stop here.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseAllowedOrigins() map[string]struct{} {
	allowed := make(map[string]struct{})
	for origin := range strings.SplitSeq(os.Getenv("WEB_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	return allowed
}

func isOriginAllowed(origin string, allowed map[string]struct{}) bool {
	if origin == "" {
		return false
	}
	if isLocalhostOrigin(origin) {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// isLocalhostOrigin reports whether the origin is http(s)://localhost with an
// optional port. The host must be exactly localhost; localhost.example.com
// does not qualify.
func isLocalhostOrigin(origin string) bool {
	rest, ok := strings.CutPrefix(origin, "http://")
	if !ok {
		rest, ok = strings.CutPrefix(origin, "https://")
	}
	if !ok {
		return false
	}
	host, _, _ := strings.Cut(rest, ":")
	return host == "localhost"
}
