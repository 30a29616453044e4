package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// secretAuth guards job and admin endpoints with the shared scheduler secret,
// accepted as a bearer token or a query parameter. An empty configured secret
// is a dev bypass; in production it rejects everything.
func (s *Server) secretAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.JobsSecret()

		if secret == "" {
			if s.config.IsProduction() {
				renderError(w, r, fmt.Errorf("jobs secret not configured"), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r) // dev bypass
			return
		}

		if subtle.ConstantTimeCompare([]byte(requestSecret(r)), []byte(secret)) != 1 {
			renderError(w, r, fmt.Errorf("unauthorized"), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestSecret extracts the presented secret from the Authorization header
// or the secret query parameter
func requestSecret(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("secret")
}
