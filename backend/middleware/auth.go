// Package middleware holds the gateway's HTTP middleware.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/utils"
)

// APIKeyAuth guards routes with a static API key supplied in the
// X-API-Key header. An empty configured key disables the check.
type APIKeyAuth struct {
	key    string
	logger *zap.Logger
}

// NewAPIKeyAuth creates the middleware
func NewAPIKeyAuth(key string, logger *zap.Logger) *APIKeyAuth {
	return &APIKeyAuth{key: key, logger: logger}
}

// Enabled reports whether a key is configured
func (a *APIKeyAuth) Enabled() bool {
	return a.key != ""
}

// RequireKey rejects requests without the correct X-API-Key header.
func (a *APIKeyAuth) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(a.key)) != 1 {
			a.logger.Warn("rejected request with invalid API key",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr))
			_ = utils.WriteUnauthorized(w, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
