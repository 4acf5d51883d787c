package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movie-tracker/movietracker-web/internal/config"
	"github.com/movie-tracker/movietracker-web/internal/jobs"
	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/session"
)

type fakeProber struct {
	user *models.User
	err  error
}

func (f *fakeProber) Probe(ctx context.Context) (*models.User, error) { return f.user, f.err }

type fakePruner struct {
	mu     sync.Mutex
	cutoff time.Time
}

func (f *fakePruner) PruneMovies(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return 3, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recordingBroadcaster) BroadcastJSON(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, v.(models.ChangeEvent))
}

func (r *recordingBroadcaster) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Data.(jobs.JobStatus).Status)
	}
	return out
}

type fakeJobContext struct {
	cfg    *config.Config
	prober *fakeProber
	pruner *fakePruner
	events *recordingBroadcaster
	jobMgr *jobs.JobManager
}

func (f *fakeJobContext) Config() *config.Config       { return f.cfg }
func (f *fakeJobContext) Prober() jobs.SessionProber   { return f.prober }
func (f *fakeJobContext) Pruner() jobs.MoviePruner     { return f.pruner }
func (f *fakeJobContext) Events() jobs.Broadcaster     { return f.events }
func (f *fakeJobContext) JobManager() *jobs.JobManager { return f.jobMgr }

func newContext() *fakeJobContext {
	cfg := &config.Config{}
	cfg.Cache.MovieTTLHours = 24
	ctx := &fakeJobContext{cfg: cfg, prober: &fakeProber{}, pruner: &fakePruner{}, events: &recordingBroadcaster{}}
	ctx.jobMgr = jobs.NewManager(ctx)
	return ctx
}

func waitFor(t *testing.T, mgr *jobs.JobManager, id string) jobs.JobStatus {
	t.Helper()
	var found jobs.JobStatus
	assert.Eventually(t, func() bool {
		for _, s := range mgr.GetStatus() {
			if s.ID == id && s.Status != "running" && s.Status != "idle" {
				found = s
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return found
}

func TestManager_NewManager(t *testing.T) {
	mgr := jobs.NewManager(newContext())
	assert.NotNil(t, mgr)
	assert.Empty(t, mgr.GetStatus())
}

func TestManager_RegisterAndGetStatus(t *testing.T) {
	mgr := newContext().jobMgr
	mgr.Register("jobA", "Job A", func(ctx context.Context, app jobs.JobContext) (string, error) { return "", nil })
	mgr.Register("jobB", "Job B", func(ctx context.Context, app jobs.JobContext) (string, error) { return "", nil })
	statuses := mgr.GetStatus()
	require.Len(t, statuses, 2)
	assert.Equal(t, "jobA", statuses[0].ID)
	assert.Equal(t, "jobB", statuses[1].ID)
	assert.Equal(t, "idle", statuses[0].Status)
}

func TestManager_RunJob_SuccessAndFailure(t *testing.T) {
	app := newContext()
	mgr := app.jobMgr
	mgr.Register("ok", "OK", func(ctx context.Context, app jobs.JobContext) (string, error) { return "done", nil })
	mgr.Register("bad", "Bad", func(ctx context.Context, app jobs.JobContext) (string, error) { return "", errors.New("nope") })

	require.NoError(t, mgr.RunJob("ok", app))
	s := waitFor(t, mgr, "ok")
	assert.Equal(t, "success", s.Status)
	assert.Equal(t, "done", s.Message)

	require.NoError(t, mgr.RunJob("bad", app))
	s = waitFor(t, mgr, "bad")
	assert.Equal(t, "failed", s.Status)
	assert.Equal(t, "nope", s.Message)
}

func TestManager_RunJob_AlreadyRunning(t *testing.T) {
	app := newContext()
	mgr := app.jobMgr
	block := make(chan struct{})
	mgr.Register("jobY", "Job Y", func(ctx context.Context, app jobs.JobContext) (string, error) {
		<-block
		return "", nil
	})
	require.NoError(t, mgr.RunJob("jobY", app))
	assert.Error(t, mgr.RunJob("jobY", app))
	close(block)
}

func TestManager_RunJob_NotFound(t *testing.T) {
	app := newContext()
	assert.Error(t, app.jobMgr.RunJob("nojob", app))
}

func TestManager_RunJob_Panic(t *testing.T) {
	app := newContext()
	mgr := app.jobMgr
	mgr.Register("panicJob", "Panic Job", func(ctx context.Context, app jobs.JobContext) (string, error) { panic("fail") })
	require.NoError(t, mgr.RunJob("panicJob", app))
	s := waitFor(t, mgr, "panicJob")
	assert.Equal(t, "failed", s.Status)
	assert.Contains(t, s.Message, "panicked")
}

func TestManager_Concurrency(t *testing.T) {
	app := newContext()
	mgr := app.jobMgr
	var mu sync.Mutex
	var count int
	block := make(chan struct{})
	mgr.Register("jobC", "Job C", func(ctx context.Context, app jobs.JobContext) (string, error) {
		mu.Lock()
		count++
		mu.Unlock()
		<-block
		return "", nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.RunJob("jobC", app)
		}()
	}
	wg.Wait()
	close(block)
	waitFor(t, mgr, "jobC")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count, "job should only run once concurrently")
}

func TestDefaultJobs(t *testing.T) {
	app := newContext()
	jobs.RegisterDefaults(app.jobMgr)

	app.prober.user = &models.User{Username: "alice"}
	require.NoError(t, app.jobMgr.RunJob(jobs.SessionRevalidateJob, app))
	s := waitFor(t, app.jobMgr, jobs.SessionRevalidateJob)
	assert.Equal(t, "success", s.Status)
	assert.Contains(t, s.Message, "alice")

	before := time.Now()
	require.NoError(t, app.jobMgr.RunJob(jobs.MovieCachePruneJob, app))
	s = waitFor(t, app.jobMgr, jobs.MovieCachePruneJob)
	assert.Equal(t, "success", s.Status)
	assert.Equal(t, "Pruned 3 cached movies.", s.Message)
	app.pruner.mu.Lock()
	assert.WithinDuration(t, before.Add(-24*time.Hour), app.pruner.cutoff, time.Minute)
	app.pruner.mu.Unlock()
}

func TestRevalidateJob_NoSession(t *testing.T) {
	app := newContext()
	jobs.RegisterDefaults(app.jobMgr)
	app.prober.err = session.ErrNotAuthenticated

	require.NoError(t, app.jobMgr.RunJob(jobs.SessionRevalidateJob, app))
	s := waitFor(t, app.jobMgr, jobs.SessionRevalidateJob)
	assert.Equal(t, "success", s.Status)
	assert.Equal(t, "No stored session.", s.Message)
}

func TestManager_PublishesStatusChanges(t *testing.T) {
	app := newContext()
	mgr := app.jobMgr
	mgr.Register("ok", "OK", func(ctx context.Context, app jobs.JobContext) (string, error) { return "done", nil })

	require.NoError(t, mgr.RunJob("ok", app))
	assert.Eventually(t, func() bool { return len(app.events.statuses()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"running", "success"}, app.events.statuses())
}
