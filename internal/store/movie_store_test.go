package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/testutil"
)

func TestPutAndGetMovie(t *testing.T) {
	s := New(testutil.SetupTestDB(t))

	_, found, err := s.GetMovie(1)
	require.NoError(t, err)
	assert.False(t, found)

	dune := models.Movie{ID: 1, Title: "Dune", Year: "2021", Genre: []string{"Sci-Fi"}}
	require.NoError(t, s.PutMovie(dune))

	got, found, err := s.GetMovie(1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, dune, got)

	// Upsert replaces the payload.
	dune.Title = "Dune: Part One"
	require.NoError(t, s.PutMovie(dune))
	got, _, err = s.GetMovie(1)
	require.NoError(t, err)
	assert.Equal(t, "Dune: Part One", got.Title)

	n, err := s.CountMovies()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPutMovies_Batch(t *testing.T) {
	s := New(testutil.SetupTestDB(t))
	require.NoError(t, s.PutMovies(nil))
	require.NoError(t, s.PutMovies([]models.Movie{
		{ID: 1, Title: "Dune"},
		{ID: 2, Title: "Matrix"},
		{ID: 1, Title: "Dune"},
	}))
	n, err := s.CountMovies()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPruneMovies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	require.NoError(t, s.PutMovie(models.Movie{ID: 1, Title: "Old"}))
	require.NoError(t, s.PutMovie(models.Movie{ID: 2, Title: "New"}))

	_, err := db.Exec("UPDATE movies SET cached_at = ? WHERE id = 1", time.Now().Add(-48*time.Hour).UTC())
	require.NoError(t, err)

	removed, err := s.PruneMovies(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, found, err := s.GetMovie(1)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = s.GetMovie(2)
	require.NoError(t, err)
	assert.True(t, found)
}
