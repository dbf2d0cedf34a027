package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

// Auth requires a bearer token matching token. An empty token disables the
// check.
func Auth(token string) func(http.Handler) http.Handler {
	want := hashToken(token)
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract the token from the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "invalid authorization header format")
				return
			}

			got := hashToken(strings.TrimPrefix(authHeader, "Bearer "))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				unauthorized(w, "invalid API token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="oxisync"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(&domain.APIError{
		Code:    http.StatusUnauthorized,
		Message: message,
	})
}

// hashToken fixes the compared length so the comparison does not leak it.
func hashToken(token string) [sha256.Size]byte {
	return sha256.Sum256([]byte(token))
}
