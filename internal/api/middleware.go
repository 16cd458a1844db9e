package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyAuth validates requests against the backend API key. The X-API-Key
// header is checked first, then Authorization: Bearer <key>. Comparison is
// constant-time.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")

			if key == "" {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					key = strings.TrimPrefix(authHeader, "Bearer ")
				}
			}

			if key == "" {
				respondError(w, http.StatusUnauthorized, "Missing API key. Provide X-API-Key header or Authorization: Bearer <key>")
				return
			}

			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				respondError(w, http.StatusForbidden, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
