package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/access"
	"github.com/bcnelson/oxidized-inventory-sync/internal/metrics"
)

// Access rejects clients outside the allow-list with 403 "Access denied.".
func Access(allow *access.AllowList, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := access.ClientAddress(r)
			if err := allow.Check(client); err != nil {
				metrics.AccessDeniedTotal.Inc()
				logger.Warn("access denied", zap.String("client", client), zap.String("path", r.URL.Path), zap.Error(err))
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte("Access denied."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
