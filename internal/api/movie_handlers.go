package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

func urlID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

func (s *Server) handleGetMyMovies(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	screen, err := s.app.MyMovies(r.Context(), c)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, screen)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movieID, ok := urlID(r, "movieID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	details, err := s.app.MovieDetails(r.Context(), movieID)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, details)
}

func (s *Server) handleToggleMovieFavorite(w http.ResponseWriter, r *http.Request) {
	movieID, ok := urlID(r, "movieID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	entry, err := s.app.Watchlist().ToggleFavoriteForMovie(r.Context(), movieID)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, entry)
}

// handleSetMovieStatus applies the status picker of a movie card: it adds,
// updates or removes the entry as needed.
func (s *Server) handleSetMovieStatus(w http.ResponseWriter, r *http.Request) {
	movieID, ok := urlID(r, "movieID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	status, err := models.ParseStatus(payload.Status)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.app.Watchlist().SetStatusForMovie(r.Context(), movieID, status)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	if entry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	RespondWithJSON(w, http.StatusOK, entry)
}
