package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// authMiddleware returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
// Otherwise, requests must include "Authorization: Bearer <token>" header.
// The health route is always open.
func authMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == healthPath {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, unauthorized)
				return
			}
			presented := strings.TrimPrefix(auth, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, unauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
