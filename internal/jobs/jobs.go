package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/movie-tracker/movietracker-web/internal/session"
)

const (
	SessionRevalidateJob = "session-revalidate"
	MovieCachePruneJob   = "movie-cache-prune"
)

// RegisterDefaults registers the built-in jobs on the manager.
func RegisterDefaults(jm *JobManager) {
	jm.Register(SessionRevalidateJob, "Revalidate session", revalidateSession)
	jm.Register(MovieCachePruneJob, "Prune movie cache", pruneMovieCache)
}

// StartJobs starts the background job scheduler. The caller stops it.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	schedule(s, app, SessionRevalidateJob, app.Config().Session.RevalidateMinutes)
	pruneEvery := 60
	if app.Config().Cache.MovieTTLHours == 0 {
		pruneEvery = 0
	}
	schedule(s, app, MovieCachePruneJob, pruneEvery)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func schedule(s *gocron.Scheduler, app JobContext, jobID string, minutes int) {
	if minutes == 0 {
		log.Printf("Interval for '%s' is 0, scheduled runs are disabled.", jobID)
		return
	}

	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobID, minutes)
	_, err := s.Every(minutes).Minutes().Do(func() {
		// Submit through the manager so scheduled and manual runs never overlap.
		if err := app.JobManager().RunJob(jobID, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobID, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobID, err)
	}
}

// revalidateSession probes the profile so a token revoked elsewhere is
// cleared without waiting for the next user action.
func revalidateSession(ctx context.Context, app JobContext) (string, error) {
	user, err := app.Prober().Probe(ctx)
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "No stored session.", nil
	case err != nil:
		return "", fmt.Errorf("session probe: %w", err)
	}
	return fmt.Sprintf("Session valid for %s.", user.Username), nil
}

func pruneMovieCache(ctx context.Context, app JobContext) (string, error) {
	ttl := app.Config().MovieTTL()
	if ttl <= 0 {
		return "Pruning disabled.", nil
	}
	n, err := app.Pruner().PruneMovies(time.Now().Add(-ttl))
	if err != nil {
		return "", fmt.Errorf("prune movie cache: %w", err)
	}
	return fmt.Sprintf("Pruned %d cached movies.", n), nil
}
