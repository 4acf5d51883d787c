// Package watchlist applies user changes to watchlist entries. Nothing is
// applied locally before the backend confirms; every confirmed change is
// followed by a snapshot refetch.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/view"
)

// Backend is the set of entry mutations the coordinator dispatches.
type Backend interface {
	AddEntry(ctx context.Context, movieID int, f models.EntryFields) (*models.WatchlistEntry, error)
	UpdateStatus(ctx context.Context, id int, status models.Status) (*models.WatchlistEntry, error)
	SetFavorite(ctx context.Context, id int, favorite bool) (*models.WatchlistEntry, error)
	UpdateRating(ctx context.Context, id int, rating *int) (*models.WatchlistEntry, error)
	UpdateEntry(ctx context.Context, id int, f models.EntryFields) (*models.WatchlistEntry, error)
	RemoveEntry(ctx context.Context, id int) error
}

// Snapshot is the cached watchlist the coordinator reads and invalidates.
type Snapshot interface {
	Get(ctx context.Context) ([]models.WatchlistEntry, error)
	Refresh(ctx context.Context) ([]models.WatchlistEntry, error)
}

// Coordinator serializes nothing itself; concurrent mutations each settle
// with their own refetch.
type Coordinator struct {
	backend  Backend
	snapshot Snapshot
}

// NewCoordinator creates a coordinator.
func NewCoordinator(b Backend, snap Snapshot) *Coordinator {
	return &Coordinator{backend: b, snapshot: snap}
}

// Add creates an entry for a movie that has none. A missing status means
// plan to watch.
func (c *Coordinator) Add(ctx context.Context, movieID int, f models.EntryFields) (*models.WatchlistEntry, error) {
	f = normalize(f)
	if f.Status == "" {
		f.Status = models.StatusPlanToWatch
	}
	if f.Status == models.StatusUnwatched {
		return nil, backend.NewValidationError("cannot add a movie as unwatched",
			map[string]string{"status": "choose a watch status"})
	}
	if err := validate(f); err != nil {
		return nil, err
	}

	entries, err := c.snapshot.Get(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := view.EntryForMovie(entries, movieID); ok {
		return nil, &backend.Error{Kind: backend.ErrConflict, Message: fmt.Sprintf("movie %d is already in the watchlist", movieID)}
	}

	entry, err := c.backend.AddEntry(ctx, movieID, f)
	if err != nil {
		if errors.Is(err, backend.ErrConflict) {
			// Another session added it first; show what is really there.
			c.settle(ctx)
		}
		return nil, err
	}
	c.settle(ctx)
	return entry, nil
}

// UpdateStatus changes an entry's status. Unwatched removes the entry.
func (c *Coordinator) UpdateStatus(ctx context.Context, entryID int, status models.Status) (*models.WatchlistEntry, error) {
	if status == models.StatusUnwatched {
		return nil, c.Remove(ctx, entryID)
	}
	if err := validate(models.EntryFields{Status: status}); err != nil {
		return nil, err
	}
	entry, err := c.backend.UpdateStatus(ctx, entryID, status)
	if err != nil {
		return nil, err
	}
	c.settle(ctx)
	return entry, nil
}

// SetFavorite sets the favorite flag of an entry.
func (c *Coordinator) SetFavorite(ctx context.Context, entryID int, favorite bool) (*models.WatchlistEntry, error) {
	entry, err := c.backend.SetFavorite(ctx, entryID, favorite)
	if err != nil {
		return nil, err
	}
	c.settle(ctx)
	return entry, nil
}

// ToggleFavorite flips the favorite flag of an entry, as currently known
// from the snapshot.
func (c *Coordinator) ToggleFavorite(ctx context.Context, entryID int) (*models.WatchlistEntry, error) {
	current, err := c.entryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return c.SetFavorite(ctx, entryID, !current.Favorite)
}

// UpdateRating sets or clears (nil) an entry's rating.
func (c *Coordinator) UpdateRating(ctx context.Context, entryID int, rating *int) (*models.WatchlistEntry, error) {
	rating = models.NormalizeRating(rating)
	if err := validate(models.EntryFields{Rating: rating}); err != nil {
		return nil, err
	}
	entry, err := c.backend.UpdateRating(ctx, entryID, rating)
	if err != nil {
		return nil, err
	}
	c.settle(ctx)
	return entry, nil
}

// UpdateItem replaces every mutable field of an entry. Unwatched removes it.
func (c *Coordinator) UpdateItem(ctx context.Context, entryID int, f models.EntryFields) (*models.WatchlistEntry, error) {
	if f.Status == models.StatusUnwatched {
		return nil, c.Remove(ctx, entryID)
	}
	f = normalize(f)
	if err := validate(f); err != nil {
		return nil, err
	}
	entry, err := c.backend.UpdateEntry(ctx, entryID, f)
	if err != nil {
		return nil, err
	}
	c.settle(ctx)
	return entry, nil
}

// Remove deletes an entry. An entry that is already gone counts as removed.
func (c *Coordinator) Remove(ctx context.Context, entryID int) error {
	err := c.backend.RemoveEntry(ctx, entryID)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return err
	}
	if err != nil {
		log.Printf("Watchlist entry %d was already removed", entryID)
	}
	c.settle(ctx)
	return nil
}

// SetStatusForMovie applies a status chosen for a movie: it adds, updates
// or removes the movie's entry as needed. Unwatched on an unlisted movie
// is a no-op and returns a nil entry.
func (c *Coordinator) SetStatusForMovie(ctx context.Context, movieID int, status models.Status) (*models.WatchlistEntry, error) {
	entries, err := c.snapshot.Get(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := view.EntryForMovie(entries, movieID)
	if !ok {
		if status == models.StatusUnwatched {
			return nil, nil
		}
		return c.Add(ctx, movieID, models.EntryFields{Status: status})
	}
	return c.UpdateStatus(ctx, current.ID, status)
}

// ToggleFavoriteForMovie flips the favorite flag of a movie's entry. An
// unlisted movie gets a new plan-to-watch entry marked favorite.
func (c *Coordinator) ToggleFavoriteForMovie(ctx context.Context, movieID int) (*models.WatchlistEntry, error) {
	entries, err := c.snapshot.Get(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := view.EntryForMovie(entries, movieID)
	if !ok {
		return c.Add(ctx, movieID, models.EntryFields{Status: models.StatusPlanToWatch, Favorite: true})
	}
	return c.SetFavorite(ctx, current.ID, !current.Favorite)
}

// EntryForMovie resolves a movie to its entry through the snapshot.
func (c *Coordinator) EntryForMovie(ctx context.Context, movieID int) (models.WatchlistEntry, error) {
	entries, err := c.snapshot.Get(ctx)
	if err != nil {
		return models.WatchlistEntry{}, err
	}
	entry, ok := view.EntryForMovie(entries, movieID)
	if !ok {
		return models.WatchlistEntry{}, &backend.Error{Kind: backend.ErrNotFound, Message: fmt.Sprintf("movie %d is not in the watchlist", movieID)}
	}
	return entry, nil
}

func (c *Coordinator) entryByID(ctx context.Context, entryID int) (models.WatchlistEntry, error) {
	entries, err := c.snapshot.Get(ctx)
	if err != nil {
		return models.WatchlistEntry{}, err
	}
	for _, e := range entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return models.WatchlistEntry{}, &backend.Error{Kind: backend.ErrNotFound, Message: fmt.Sprintf("watchlist entry %d not found", entryID)}
}

// settle invalidates the snapshot and refetches it. The mutation already
// succeeded, so a failed refetch is only logged; the next read retries.
func (c *Coordinator) settle(ctx context.Context) {
	if _, err := c.snapshot.Refresh(ctx); err != nil {
		log.Printf("Failed to refetch watchlist after mutation: %v", err)
	}
}

// normalize maps blank comments and zero ratings to absent.
func normalize(f models.EntryFields) models.EntryFields {
	f.Comment = models.NormalizeComment(f.Comment)
	f.Rating = models.NormalizeRating(f.Rating)
	return f
}

func validate(f models.EntryFields) error {
	if problems := f.Validate(); len(problems) > 0 {
		return backend.NewValidationError("invalid watchlist entry", problems)
	}
	return nil
}
