package api

import (
	"encoding/json"
	"net/http"

	"github.com/movie-tracker/movietracker-web/internal/dialog"
)

func (s *Server) handleGetDialog(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Dialog().View())
}

// handleOpenDialog opens the dialog for a movie, seeded from its current entry.
func (s *Server) handleOpenDialog(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MovieID int `json:"movie_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.MovieID <= 0 {
		RespondWithError(w, http.StatusBadRequest, "movie_id is required")
		return
	}
	details, err := s.app.MovieDetails(r.Context(), payload.MovieID)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, s.app.Dialog().Open(*details))
}

func (s *Server) handleEditDialog(w http.ResponseWriter, r *http.Request) {
	var draft dialog.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	v, err := s.app.Dialog().Edit(draft)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, v)
}

// handleSaveDialog answers with the dialog view in both outcomes; on
// failure it is still open and carries the error.
func (s *Server) handleSaveDialog(w http.ResponseWriter, r *http.Request) {
	v, err := s.app.Dialog().Save(r.Context())
	if err != nil {
		code, _ := statusForError(err)
		RespondWithJSON(w, code, v)
		return
	}
	RespondWithJSON(w, http.StatusOK, v)
}

func (s *Server) handleCancelDialog(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Dialog().Cancel())
}
