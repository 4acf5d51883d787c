package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/movie-tracker/movietracker-web/internal/view"
)

// criteriaFromQuery reads status, favorites, q and sort.
func criteriaFromQuery(r *http.Request) (view.Criteria, error) {
	q := r.URL.Query()
	status, err := view.ParseStatusFilter(q.Get("status"))
	if err != nil {
		return view.Criteria{}, err
	}
	order, err := view.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return view.Criteria{}, err
	}
	favorites, _ := strconv.ParseBool(q.Get("favorites"))
	return view.Criteria{
		Status:        status,
		FavoritesOnly: favorites,
		Search:        q.Get("q"),
		Sort:          order,
	}, nil
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	screen, err := s.app.Catalog(r.Context(), c)
	if err != nil {
		RespondWithAppError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, screen)
}

// handleSearchCatalog records a search box edit. Edits are debounced unless
// "immediate" is set, as on pressing enter.
func (s *Server) handleSearchCatalog(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Term      string `json:"term"`
		Immediate bool   `json:"immediate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	pager := s.app.Pager()
	if payload.Immediate {
		pager.CommitSearchTerm(s.app.Context(), payload.Term)
	} else {
		pager.SetSearchTerm(payload.Term)
	}
	RespondWithJSON(w, http.StatusAccepted, pager.Status())
}

// handleNextPage is the loading sentinel coming into view. The filter in
// the query decides whether paging applies at all.
func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	started := s.app.Pager().SentinelVisible(s.app.Context(), c.BlocksPaging())
	RespondWithJSON(w, http.StatusAccepted, map[string]any{
		"started": started,
		"pager":   s.app.Pager().Status(),
	})
}

func (s *Server) handleRetryCatalog(w http.ResponseWriter, r *http.Request) {
	// The pager keeps the outcome; the response reports it.
	_ = s.app.Pager().Retry(s.app.Context())
	RespondWithJSON(w, http.StatusOK, s.app.Pager().Status())
}
