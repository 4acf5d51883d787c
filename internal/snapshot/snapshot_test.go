package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WatchlistEntry), args.Error(1)
}

func TestSnapshot_CachesUntilInvalidated(t *testing.T) {
	lister := new(MockLister)
	entries := []models.WatchlistEntry{{ID: 10, MovieID: 1, Status: models.StatusWatched}}
	lister.On("ListWatchlist", mock.Anything).Return(entries, nil)

	s := New(lister)
	got, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	_, err = s.Get(context.Background())
	require.NoError(t, err)
	lister.AssertNumberOfCalls(t, "ListWatchlist", 1)

	s.Invalidate()
	_, fresh := s.Peek()
	assert.False(t, fresh)

	_, err = s.Get(context.Background())
	require.NoError(t, err)
	lister.AssertNumberOfCalls(t, "ListWatchlist", 2)
	assert.Equal(t, 2, s.Fetches())
}

func TestSnapshot_ErrorLeavesItStale(t *testing.T) {
	lister := new(MockLister)
	boom := errors.New("boom")
	lister.On("ListWatchlist", mock.Anything).Return(nil, boom).Once()
	lister.On("ListWatchlist", mock.Anything).Return([]models.WatchlistEntry{}, nil).Once()

	s := New(lister)
	_, err := s.Get(context.Background())
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

// gatedLister returns whatever is in `next` at the moment its gate opens.
type gatedLister struct {
	mu    sync.Mutex
	calls int
	gates []chan []models.WatchlistEntry
}

func (g *gatedLister) ListWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	g.mu.Lock()
	gate := g.gates[g.calls]
	g.calls++
	g.mu.Unlock()
	return <-gate, nil
}

func (g *gatedLister) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestSnapshot_StaleFetchNeverOverwritesNewerState(t *testing.T) {
	old := []models.WatchlistEntry{{ID: 1, MovieID: 1, Status: models.StatusWatching}}
	updated := []models.WatchlistEntry{{ID: 1, MovieID: 1, Status: models.StatusWatched}}
	g := &gatedLister{gates: []chan []models.WatchlistEntry{make(chan []models.WatchlistEntry, 1), make(chan []models.WatchlistEntry, 1)}}
	s := New(g)

	result := make(chan []models.WatchlistEntry, 1)
	go func() {
		got, _ := s.Get(context.Background())
		result <- got
	}()
	require.Eventually(t, func() bool { return g.callCount() == 1 }, time.Second, time.Millisecond)

	// A mutation lands while the first fetch is still in flight.
	s.Invalidate()

	// The in-flight fetch returns pre-mutation data; it must be discarded.
	g.gates[0] <- old
	require.Eventually(t, func() bool { return g.callCount() == 2 }, time.Second, time.Millisecond)
	g.gates[1] <- updated

	assert.Equal(t, updated, <-result)
	got, fresh := s.Peek()
	assert.True(t, fresh)
	assert.Equal(t, updated, got)
}

// cancellableLister blocks until gate is closed and fails early if its
// context ends first, the way an HTTP request would.
type cancellableLister struct {
	gate    chan struct{}
	started chan struct{}
	entries []models.WatchlistEntry
}

func (c *cancellableLister) ListWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	close(c.started)
	select {
	case <-c.gate:
		return c.entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSnapshot_SharedFetchOutlivesCancelledCaller(t *testing.T) {
	entries := []models.WatchlistEntry{{ID: 3, MovieID: 7, Status: models.StatusWatched}}
	l := &cancellableLister{gate: make(chan struct{}), started: make(chan struct{}), entries: entries}
	s := New(l)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := s.Get(ctx)
		first <- err
	}()
	<-l.started

	second := make(chan []models.WatchlistEntry, 1)
	secondErr := make(chan error, 1)
	go func() {
		got, err := s.Get(context.Background())
		secondErr <- err
		second <- got
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(l.gate)
	require.NoError(t, <-secondErr)
	assert.Equal(t, entries, <-second)
	got, fresh := s.Peek()
	assert.True(t, fresh)
	assert.Equal(t, entries, got)
	assert.Equal(t, 1, s.Fetches())
}

func TestSnapshot_ClearAndListeners(t *testing.T) {
	lister := new(MockLister)
	lister.On("ListWatchlist", mock.Anything).Return([]models.WatchlistEntry{{ID: 1, MovieID: 2}}, nil)
	s := New(lister)

	var notified int
	s.OnChange(func() { notified++ })

	_, err := s.Get(context.Background())
	require.NoError(t, err)
	s.Clear()

	got, fresh := s.Peek()
	assert.False(t, fresh)
	assert.Empty(t, got)
	assert.True(t, s.FetchedAt().IsZero())
	assert.Equal(t, 2, notified)
}
