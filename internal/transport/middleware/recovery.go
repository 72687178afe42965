package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/transport"
)

// RecoveryMiddleware turns a panic into the internal error envelope.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"error", rec,
						"method", r.Method,
						"path", redactPath(r.URL.Path),
						"stack", string(debug.Stack()))

					safe := internal.NewInternalError("Internal server error", nil)
					base.WriteJSON(w, http.StatusInternalServerError, transport.Envelope{
						Success: false,
						Message: safe.Message,
						Error:   safe,
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
