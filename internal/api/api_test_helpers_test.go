package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movie-tracker/movietracker-web/internal/api"
	"github.com/movie-tracker/movietracker-web/internal/config"
	"github.com/movie-tracker/movietracker-web/internal/core"
	"github.com/movie-tracker/movietracker-web/internal/credentials"
	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/testutil"
)

type testEnv struct {
	app    *core.App
	fake   *testutil.FakeBackend
	creds  *credentials.MemoryStore
	router http.Handler
}

// setupTestServer wires a full app against a fake backend and an
// in-memory database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	fake := testutil.NewFakeBackend(t)

	cfg := &config.Config{}
	cfg.Backend.BaseURL = fake.URL()
	cfg.Backend.TimeoutSeconds = 5
	cfg.Catalog.DebounceMS = 300
	cfg.Catalog.Retry.MaxAttempts = 1
	cfg.Catalog.Retry.BaseDelayMS = 1
	cfg.Catalog.Retry.MaxDelayMS = 1
	cfg.Cache.MovieTTLHours = 24

	creds := credentials.NewMemoryStore()
	app := core.Build(cfg, testutil.SetupTestDB(t), creds, core.Options{})
	t.Cleanup(app.Close)

	return &testEnv{app: app, fake: fake, creds: creds, router: api.NewServer(app).Router()}
}

// scenarioCatalog loads Dune and Matrix on page one of two, and a watched
// favorite entry for Dune.
func (e *testEnv) scenarioCatalog() {
	e.fake.SetPageSize(2)
	e.fake.AddMovies(
		models.Movie{ID: 1, Title: "Dune", Year: "2021"},
		models.Movie{ID: 2, Title: "Matrix", Year: "1999"},
		models.Movie{ID: 3, Title: "Arrival", Year: "2016"},
	)
	e.fake.AddEntry(models.WatchlistEntry{ID: 10, MovieID: 1, Status: models.StatusWatched, Favorite: true, Rating: models.IntPtr(5)})
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	e.fake.AddUser("alice", "secret")
	rr := e.do(t, "POST", "/api/session/login", map[string]string{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
