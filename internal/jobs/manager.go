package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/movie-tracker/movietracker-web/internal/config"
	"github.com/movie-tracker/movietracker-web/internal/models"
)

// SessionProber revalidates the stored credential.
type SessionProber interface {
	Probe(ctx context.Context) (*models.User, error)
}

// MoviePruner drops cached movie metadata older than a cutoff.
type MoviePruner interface {
	PruneMovies(cutoff time.Time) (int64, error)
}

// Broadcaster pushes job status changes to connected clients.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// JobContext is an interface that provides the necessary dependencies for a job to run.
// The core.App struct implements this interface.
type JobContext interface {
	Config() *config.Config
	Prober() SessionProber
	Pruner() MoviePruner
	Events() Broadcaster
	JobManager() *JobManager
}

// jobTask returns a short message for the status listing.
type jobTask func(ctx context.Context, app JobContext) (string, error)

// jobTimeout bounds a single run.
const jobTimeout = 2 * time.Minute

type JobStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	order   []string
	status  map[string]*JobStatus
	running bool
	appCtx  JobContext
}

func NewManager(appCtx JobContext) *JobManager {
	return &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
		appCtx: appCtx,
	}
}

func (jm *JobManager) Register(id, name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if _, exists := jm.jobs[id]; !exists {
		jm.order = append(jm.order, id)
	}
	jm.jobs[id] = task
	jm.status[id] = &JobStatus{ID: id, Name: name, Status: "idle"}
}

// RunJob starts job id in the background. Only one job runs at a time.
func (jm *JobManager) RunJob(id string, app JobContext) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return fmt.Errorf("a job is already running")
	}

	task, ok := jm.jobs[id]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job '%s' not found", id)
	}

	if app == nil {
		app = jm.appCtx
	}

	jm.running = true
	status := jm.status[id]
	status.Status = "running"
	status.StartTime = time.Now()
	status.EndTime = time.Time{}
	status.Message = "Job started..."
	started := *status
	jm.mu.Unlock()

	log.Printf("Starting job: %s", id)
	publish(app, started)
	go func() {
		var (
			msg string
			err error
		)
		defer func() {
			jm.mu.Lock()
			if r := recover(); r != nil {
				log.Printf("Job '%s' panicked: %v", id, r)
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
			} else if err != nil {
				log.Printf("Job '%s' failed: %v", id, err)
				status.Status = "failed"
				status.Message = err.Error()
			} else {
				status.Status = "success"
				status.Message = msg
				if status.Message == "" {
					status.Message = "Job completed successfully."
				}
			}
			status.EndTime = time.Now()
			jm.running = false
			finished := *status
			jm.mu.Unlock()
			log.Printf("Finished job: %s", id)
			publish(app, finished)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		msg, err = task(ctx, app)
	}()
	return nil
}

func publish(app JobContext, status JobStatus) {
	if events := app.Events(); events != nil {
		events.BroadcastJSON(models.ChangeEvent{Type: models.EventJob, Data: status})
	}
}

// GetStatus returns a copy of every job's status, in registration order.
func (jm *JobManager) GetStatus() []JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jm.order))
	for _, id := range jm.order {
		statuses = append(statuses, *jm.status[id])
	}
	return statuses
}
