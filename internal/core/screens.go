package core

import (
	"context"
	"fmt"

	"github.com/movie-tracker/movietracker-web/internal/catalog"
	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/view"
)

// CatalogScreen is the catalog list as rendered: joined, filtered and sorted.
type CatalogScreen struct {
	Movies   []models.JoinedMovie `json:"movies"`
	Stats    models.Stats         `json:"stats"`
	Statuses []models.Status      `json:"statuses"`
	Pager    catalog.Status       `json:"pager"`
	// Paging is false when the filter is answered from the watchlist alone.
	Paging bool `json:"paging"`
}

// MoviesScreen is the watchlist-sourced list.
type MoviesScreen struct {
	Movies   []models.JoinedMovie `json:"movies"`
	Stats    models.Stats         `json:"stats"`
	Statuses []models.Status      `json:"statuses"`
}

// Catalog joins the accumulated catalog with the snapshot. The search term
// of the catalog is applied by the backend; c.Search only narrows lists
// sourced from the snapshot.
func (a *App) Catalog(ctx context.Context, c view.Criteria) (*CatalogScreen, error) {
	entries, err := a.snapshot.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if st := a.pager.Status(); st.Page == 0 && st.State == catalog.StateIdle && !c.BlocksPaging() {
		// First render: load page one before answering. A failure is kept
		// in the pager status.
		_ = a.pager.FetchNext(a.ctx)
	}
	movies := a.pager.Movies()
	a.resolver.Remember(movies)

	if c.Status.IsConcrete() {
		// Entries may point outside the loaded pages; fetch those movies
		// now so the lookup below finds them cached.
		var missing []int
		for _, e := range entries {
			if e.Status != models.Status(c.Status) {
				continue
			}
			if _, ok := a.resolver.Lookup(e.MovieID); !ok {
				missing = append(missing, e.MovieID)
			}
		}
		a.resolver.ResolveAll(ctx, missing)
	}

	c.SearchOnServer = !c.Status.IsConcrete()
	records := view.Apply(view.Join(movies, entries), entries, a.resolver.Lookup, c)
	return &CatalogScreen{
		Movies:   records,
		Stats:    view.ComputeStats(entries, len(records)),
		Statuses: view.PresentStatuses(entries),
		Pager:    a.pager.Status(),
		Paging:   !c.BlocksPaging(),
	}, nil
}

// MyMovies resolves every snapshot entry to its movie and applies c.
func (a *App) MyMovies(ctx context.Context, c view.Criteria) (*MoviesScreen, error) {
	entries, err := a.snapshot.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.MovieID
	}
	movies := a.resolver.ResolveAll(ctx, ids)

	c.SearchOnServer = false
	if c.Status == view.FilterUnwatched {
		// Nothing in the watchlist is unwatched.
		c.Status = view.FilterAll
		movies = nil
	}
	records := view.Apply(view.Join(movies, entries), entries, a.resolver.Lookup, c)
	return &MoviesScreen{
		Movies:   records,
		Stats:    view.ComputeStats(entries, len(records)),
		Statuses: view.PresentStatuses(entries),
	}, nil
}

// MovieDetails returns one movie joined with its entry, if any.
func (a *App) MovieDetails(ctx context.Context, movieID int) (*models.JoinedMovie, error) {
	movie, err := a.resolver.Resolve(ctx, movieID)
	if err != nil {
		return nil, err
	}
	entries, err := a.snapshot.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	joined := view.JoinOne(movie, entries)
	return &joined, nil
}
