package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the configured origins. An empty list or "*" allows any origin.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := map[string]bool{}
	for _, origin := range strings.Split(allowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			allowAll = true
		default:
			allowed[origin] = true
		}
	}
	if len(allowed) == 0 {
		allowAll = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Trace-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Trace-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
