package api

import (
	"encoding/json"
	"net/http"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := s.app.Session().Login(r.Context(), payload.Username, payload.Password); err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: s.app.Session().Profile()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := s.app.Session().Register(r.Context(), reg)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Session().Logout(); err != nil {
		RespondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleGetSession reports the session, probing the profile until a probe
// succeeds so a transient backend failure does not stick.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.app.Session()
	if sess.NeedsProbe() {
		_, _ = sess.Probe(r.Context())
	}
	RespondWithJSON(w, http.StatusOK, sessionResponse{
		Authenticated: sess.IsAuthenticated(),
		User:          sess.Profile(),
	})
}
