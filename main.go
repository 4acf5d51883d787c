package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/movie-tracker/movietracker-web/internal/api"
	"github.com/movie-tracker/movietracker-web/internal/core"
	"github.com/movie-tracker/movietracker-web/internal/jobs"
	"github.com/movie-tracker/movietracker-web/internal/session"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// A stored token is only trusted once the backend accepts it.
	probeCtx, cancelProbe := context.WithTimeout(app.Context(), app.Config().BackendTimeout())
	user, err := app.Session().Probe(probeCtx)
	switch {
	case err == nil:
		log.Printf("Restored session for %s", user.Username)
	case errors.Is(err, session.ErrNotAuthenticated):
		log.Println("No stored session. Log in through the API or the CLI.")
	default:
		log.Printf("Warning: could not validate stored session: %v", err)
	}
	cancelProbe()

	scheduler := jobs.StartJobs(app)
	defer scheduler.Stop()

	// Setup the API server
	server := api.NewServer(app)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.Config().Port),
		Handler: server.Router(),
	}
	// --- Graceful Shutdown ---
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
