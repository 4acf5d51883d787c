// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/movie-tracker/movietracker-web/internal/core"
)

// Server holds the dependencies for our API.
type Server struct {
	app *core.App
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/session/login", s.handleLogin)
		r.Post("/session/register", s.handleRegister)
		r.Get("/session", s.handleGetSession)

		r.Group(func(r chi.Router) {
			r.Use(s.SessionMiddleware)

			r.Post("/session/logout", s.handleLogout)

			// Catalog
			r.Get("/catalog", s.handleGetCatalog)
			r.Post("/catalog/search", s.handleSearchCatalog)
			r.Post("/catalog/next", s.handleNextPage)
			r.Post("/catalog/retry", s.handleRetryCatalog)

			// Movies
			r.Get("/my-movies", s.handleGetMyMovies)
			r.Get("/movies/{movieID}", s.handleGetMovie)
			r.Post("/movies/{movieID}/favorite", s.handleToggleMovieFavorite)
			r.Put("/movies/{movieID}/status", s.handleSetMovieStatus)

			// Watchlist entries, addressed by entry id
			r.Get("/watchlist", s.handleListWatchlist)
			r.Post("/watchlist", s.handleAddEntry)
			r.Patch("/watchlist/{entryID}/status", s.handleUpdateStatus)
			r.Patch("/watchlist/{entryID}/favorite", s.handleUpdateFavorite)
			r.Patch("/watchlist/{entryID}/rating", s.handleUpdateRating)
			r.Put("/watchlist/{entryID}", s.handleUpdateEntry)
			r.Delete("/watchlist/{entryID}", s.handleRemoveEntry)

			// Edit dialog
			r.Get("/dialog", s.handleGetDialog)
			r.Post("/dialog", s.handleOpenDialog)
			r.Put("/dialog", s.handleEditDialog)
			r.Post("/dialog/save", s.handleSaveDialog)
			r.Delete("/dialog", s.handleCancelDialog)

			// Jobs
			r.Get("/jobs/status", s.handleGetJobsStatus)
			r.Post("/jobs/run", s.handleRunJob)
		})
	})

	// Change notifications for open tabs
	r.Get("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Store().Ping(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
