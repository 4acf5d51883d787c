package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/models"
)

type MockMutator struct {
	mock.Mock
	// gate, when set, blocks every call until it is closed.
	gate chan struct{}
}

func (m *MockMutator) wait() {
	if m.gate != nil {
		<-m.gate
	}
}

func (m *MockMutator) Add(ctx context.Context, movieID int, f models.EntryFields) (*models.WatchlistEntry, error) {
	m.wait()
	args := m.Called(ctx, movieID, f)
	e, _ := args.Get(0).(*models.WatchlistEntry)
	return e, args.Error(1)
}

func (m *MockMutator) UpdateItem(ctx context.Context, entryID int, f models.EntryFields) (*models.WatchlistEntry, error) {
	m.wait()
	args := m.Called(ctx, entryID, f)
	e, _ := args.Get(0).(*models.WatchlistEntry)
	return e, args.Error(1)
}

func (m *MockMutator) Remove(ctx context.Context, entryID int) error {
	m.wait()
	return m.Called(ctx, entryID).Error(0)
}

func listed() models.JoinedMovie {
	return models.JoinedMovie{
		Movie:         models.Movie{ID: 1, Title: "Dune"},
		IsInWatchlist: true,
		Entry: &models.WatchlistEntry{
			ID: 10, MovieID: 1, Status: models.StatusWatched, Favorite: true,
			Comment: models.StringPtr("great"), Rating: models.IntPtr(5),
		},
	}
}

func unlisted() models.JoinedMovie {
	return models.JoinedMovie{Movie: models.Movie{ID: 2, Title: "Matrix"}}
}

func TestOpen_Seeds(t *testing.T) {
	d := New(new(MockMutator))

	v := d.Open(listed())
	assert.Equal(t, StateOpen, v.State)
	assert.Equal(t, 10, v.EntryID)
	assert.Equal(t, models.StatusWatched, v.Draft.Status)
	assert.True(t, v.Draft.Favorite)
	assert.Equal(t, "great", v.Draft.Comment)
	require.NotNil(t, v.Draft.Rating)
	assert.Equal(t, 5, *v.Draft.Rating)

	v = d.Open(unlisted())
	assert.Equal(t, StateOpen, v.State)
	assert.Zero(t, v.EntryID)
	assert.Equal(t, Draft{Status: models.StatusPlanToWatch}, v.Draft)
	assert.Equal(t, "Matrix", v.Movie.Title)
}

func TestSave_AddsUnlistedMovie(t *testing.T) {
	m := new(MockMutator)
	d := New(m)
	d.Open(unlisted())

	_, err := d.Edit(Draft{Status: models.StatusWatching, Comment: "  "})
	require.NoError(t, err)
	m.On("Add", mock.Anything, 2, models.EntryFields{Status: models.StatusWatching}).
		Return(&models.WatchlistEntry{ID: 11, MovieID: 2}, nil)

	v, err := d.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateClosed, v.State)
	m.AssertExpectations(t)
}

func TestSave_UpdatesOrRemovesListedMovie(t *testing.T) {
	m := new(MockMutator)
	d := New(m)

	d.Open(listed())
	_, err := d.Edit(Draft{Status: models.StatusWatched, Comment: "rewatch", Rating: models.IntPtr(4)})
	require.NoError(t, err)
	m.On("UpdateItem", mock.Anything, 10, models.EntryFields{
		Status: models.StatusWatched, Comment: models.StringPtr("rewatch"), Rating: models.IntPtr(4),
	}).Return(&models.WatchlistEntry{ID: 10}, nil)
	_, err = d.Save(context.Background())
	require.NoError(t, err)

	d.Open(listed())
	_, err = d.Edit(Draft{Status: models.StatusUnwatched})
	require.NoError(t, err)
	m.On("Remove", mock.Anything, 10).Return(nil)
	v, err := d.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateClosed, v.State)
	m.AssertExpectations(t)
}

func TestSave_FailureKeepsEdits(t *testing.T) {
	m := new(MockMutator)
	d := New(m)
	d.Open(listed())
	draft := Draft{Status: models.StatusWatching, Comment: "halfway"}
	_, err := d.Edit(draft)
	require.NoError(t, err)

	m.On("UpdateItem", mock.Anything, 10, mock.Anything).
		Return(nil, &backend.Error{Kind: backend.ErrServer, StatusCode: 500, Message: "boom"})

	v, err := d.Save(context.Background())
	assert.ErrorIs(t, err, backend.ErrServer)
	assert.Equal(t, StateOpen, v.State)
	assert.Equal(t, draft, v.Draft)
	assert.NotEmpty(t, v.Error)
}

func TestSave_ValidationErrorsExposed(t *testing.T) {
	m := new(MockMutator)
	d := New(m)
	d.Open(listed())
	m.On("UpdateItem", mock.Anything, 10, mock.Anything).
		Return(nil, backend.NewValidationError("invalid watchlist entry", map[string]string{"rating": "must be between 1 and 5"}))

	v, err := d.Save(context.Background())
	assert.ErrorIs(t, err, backend.ErrValidation)
	assert.Equal(t, StateOpen, v.State)
	assert.Equal(t, "must be between 1 and 5", v.FieldErrors["rating"])
}

func TestCancelAndClosedTransitions(t *testing.T) {
	d := New(new(MockMutator))

	_, err := d.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = d.Edit(Draft{})
	assert.ErrorIs(t, err, ErrNotOpen)

	d.Open(listed())
	v := d.Cancel()
	assert.Equal(t, StateClosed, v.State)
	assert.Nil(t, v.Movie)
	assert.Equal(t, Draft{}, v.Draft)
}

func TestUnwatchedOnUnlistedClosesWithoutRequest(t *testing.T) {
	m := new(MockMutator)
	d := New(m)
	d.Open(unlisted())
	_, err := d.Edit(Draft{Status: models.StatusUnwatched})
	require.NoError(t, err)

	v, err := d.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateClosed, v.State)
	m.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenWhileSavingReplacesDialog(t *testing.T) {
	m := &MockMutator{gate: make(chan struct{})}
	d := New(m)
	d.Open(listed())
	m.On("UpdateItem", mock.Anything, 10, mock.Anything).
		Return(nil, &backend.Error{Kind: backend.ErrServer, Message: "boom"})

	done := make(chan error, 1)
	go func() {
		_, err := d.Save(context.Background())
		done <- err
	}()

	assert.Eventually(t, func() bool { return d.View().State == StateSaving }, time.Second, time.Millisecond)
	_, err := d.Edit(Draft{})
	assert.ErrorIs(t, err, ErrSaving)

	d.Open(unlisted())
	close(m.gate)
	assert.ErrorIs(t, <-done, ErrReplaced)

	v := d.View()
	assert.Equal(t, StateOpen, v.State)
	assert.Equal(t, 2, v.Movie.ID)
	assert.Empty(t, v.Error, "the old dialog's failure must not leak into the new one")
}
