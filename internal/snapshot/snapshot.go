// Package snapshot holds the most recently fetched watchlist. Every
// successful mutation invalidates it and the next read refetches; a fetch
// that started before an invalidation never overwrites what came after it.
package snapshot

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

// Lister fetches the full watchlist.
type Lister interface {
	ListWatchlist(ctx context.Context) ([]models.WatchlistEntry, error)
}

// Snapshot is the cached watchlist collection. It is safe for concurrent use.
type Snapshot struct {
	lister Lister
	group  singleflight.Group

	mu         sync.Mutex
	entries    []models.WatchlistEntry
	fresh      bool
	generation uint64
	fetchedAt  time.Time
	fetches    int
	listeners  []func()
}

// New creates an empty, stale snapshot.
func New(lister Lister) *Snapshot {
	return &Snapshot{lister: lister}
}

// OnChange registers fn to be called whenever the snapshot is replaced,
// invalidated or cleared.
func (s *Snapshot) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns the snapshot, fetching it first when it is stale.
func (s *Snapshot) Get(ctx context.Context) ([]models.WatchlistEntry, error) {
	for {
		s.mu.Lock()
		if s.fresh {
			out := cloneEntries(s.entries)
			s.mu.Unlock()
			return out, nil
		}
		gen := s.generation
		s.mu.Unlock()

		// Concurrent readers of the same generation share one request, so it
		// must not die with whichever caller happened to start it.
		ch := s.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
			return s.fetch(context.WithoutCancel(ctx), gen)
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Val.(bool) {
			continue
		}
		// Invalidated while fetching: the result was discarded, go again.
		log.Printf("Watchlist snapshot invalidated during fetch (generation %d), refetching", gen)
	}
}

// fetch loads the watchlist and stores it only if no invalidation happened
// since gen was read. It reports whether the result was stored.
func (s *Snapshot) fetch(ctx context.Context, gen uint64) (bool, error) {
	entries, err := s.lister.ListWatchlist(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.fetches++
	if gen != s.generation {
		s.mu.Unlock()
		return false, nil
	}
	s.entries = entries
	s.fresh = true
	s.fetchedAt = time.Now()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true, nil
}

// Invalidate marks the snapshot stale. Results of fetches already in
// flight are dropped.
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.fresh = false
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Refresh invalidates and refetches.
func (s *Snapshot) Refresh(ctx context.Context) ([]models.WatchlistEntry, error) {
	s.Invalidate()
	return s.Get(ctx)
}

// Clear discards everything, as logout requires.
func (s *Snapshot) Clear() {
	s.mu.Lock()
	s.generation++
	s.fresh = false
	s.entries = nil
	s.fetchedAt = time.Time{}
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Peek returns the last stored entries without fetching, and whether they
// are still fresh.
func (s *Snapshot) Peek() ([]models.WatchlistEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.entries), s.fresh
}

// FetchedAt returns when the stored entries were fetched.
func (s *Snapshot) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}

// Fetches returns how many list requests completed.
func (s *Snapshot) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func cloneEntries(in []models.WatchlistEntry) []models.WatchlistEntry {
	if in == nil {
		return []models.WatchlistEntry{}
	}
	out := make([]models.WatchlistEntry, len(in))
	copy(out, in)
	return out
}
