package api

import (
	"net/http"
)

// SessionMiddleware rejects requests while the daemon holds no valid session.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.app.Session().IsAuthenticated() {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized: not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
