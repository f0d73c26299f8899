package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/ollabridge/pkg/api"
	"github.com/rhuss/ollabridge/pkg/debug"
	"github.com/rhuss/ollabridge/pkg/transport"
)

// Message written to clients whose credentials are missing or rejected.
const MessageUnauthenticated = "Authentication required"

// Middleware identifies the caller of every request outside the bypass list
// and stores the identity in the request context. OPTIONS requests are never
// authenticated. Rejections use the gateway's {"error": message} envelope
// with status 401; grants are checked later by Authorize.
func Middleware(chain *Chain, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				transport.WriteError(w, api.NewAuthError(api.CodeUnauthenticated, MessageUnauthenticated))
				return
			}

			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				transport.WriteError(w, api.NewInternalError("identity with empty subject", nil))
				return
			}

			debug.Log("auth", "authentication succeeded",
				"subject", result.Identity.Subject,
				"grant", result.Identity.Grant.String(),
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), result.Identity)))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication: the
// liveness check used by Ollama clients, the version endpoint, health and
// metrics.
var DefaultBypassEndpoints = []string{"/", "/api/version", "/healthz", "/metrics"}
