package middleware

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// SyncSecretHeader carries the shared secret for unattended sync triggers.
const SyncSecretHeader = "X-Sync-Secret"

// AutomationAuth guards the unattended sync trigger with a shared secret.
// An empty configured secret disables the endpoint entirely.
func AutomationAuth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Warn("Automation sync endpoint called but no secret is configured")
				respondWithError(w, http.StatusNotFound, "not found")
				return
			}

			presented := r.Header.Get(SyncSecretHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				logger.Warn("Automation sync rejected",
					zap.String("remote_addr", r.RemoteAddr),
				)
				respondWithError(w, http.StatusUnauthorized, "invalid sync secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
