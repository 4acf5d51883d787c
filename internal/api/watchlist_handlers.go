package api

import (
	"encoding/json"
	"net/http"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

// entryPayload is the body of add and full update.
type entryPayload struct {
	MovieID  int     `json:"movie_id"`
	Status   string  `json:"status"`
	Favorite bool    `json:"favorite"`
	Comments *string `json:"comments"`
	Rating   *int    `json:"rating"`
}

func (p entryPayload) fields() (models.EntryFields, error) {
	f := models.EntryFields{Favorite: p.Favorite, Comment: p.Comments, Rating: p.Rating}
	if p.Status != "" {
		status, err := models.ParseStatus(p.Status)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	return f, nil
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.app.Snapshot().Get(r.Context())
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.MovieID <= 0 {
		RespondWithError(w, http.StatusBadRequest, "movie_id is required")
		return
	}
	f, err := payload.fields()
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.app.Watchlist().Add(r.Context(), payload.MovieID, f)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, entry)
}

// respondEntry answers a mutation. A nil entry means it was removed.
func respondEntry(w http.ResponseWriter, entry *models.WatchlistEntry, err error) {
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

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	entryID, ok := urlID(r, "entryID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry ID")
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
	entry, err := s.app.Watchlist().UpdateStatus(r.Context(), entryID, status)
	respondEntry(w, entry, err)
}

// handleUpdateFavorite sets the flag when the body names it and toggles
// it otherwise.
func (s *Server) handleUpdateFavorite(w http.ResponseWriter, r *http.Request) {
	entryID, ok := urlID(r, "entryID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry ID")
		return
	}
	var payload struct {
		Favorite *bool `json:"favorite"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	if payload.Favorite == nil {
		entry, err := s.app.Watchlist().ToggleFavorite(r.Context(), entryID)
		respondEntry(w, entry, err)
		return
	}
	entry, err := s.app.Watchlist().SetFavorite(r.Context(), entryID, *payload.Favorite)
	respondEntry(w, entry, err)
}

func (s *Server) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	entryID, ok := urlID(r, "entryID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry ID")
		return
	}
	var payload struct {
		Rating *int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	entry, err := s.app.Watchlist().UpdateRating(r.Context(), entryID, payload.Rating)
	respondEntry(w, entry, err)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := urlID(r, "entryID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry ID")
		return
	}
	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	f, err := payload.fields()
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Status == "" {
		RespondWithError(w, http.StatusBadRequest, "status is required")
		return
	}
	entry, err := s.app.Watchlist().UpdateItem(r.Context(), entryID, f)
	respondEntry(w, entry, err)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := urlID(r, "entryID")
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid entry ID")
		return
	}
	if err := s.app.Watchlist().Remove(r.Context(), entryID); err != nil {
		RespondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
