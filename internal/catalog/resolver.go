package catalog

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

// MovieGetter fetches a single movie from the backend.
type MovieGetter interface {
	GetMovie(ctx context.Context, id int) (*models.Movie, error)
}

// MovieCache is the local metadata cache.
type MovieCache interface {
	GetMovie(id int) (models.Movie, bool, error)
	PutMovie(m models.Movie) error
	PutMovies(movies []models.Movie) error
}

// Resolver finds movie metadata for identifiers that may lie outside the
// loaded catalog pages: first the pager, then the local cache, then the backend.
type Resolver struct {
	pager  *Pager
	cache  MovieCache
	getter MovieGetter
	// Concurrency bounds ResolveAll's parallel backend lookups.
	Concurrency int
}

// NewResolver creates a resolver. pager and cache may be nil.
func NewResolver(pager *Pager, cache MovieCache, getter MovieGetter) *Resolver {
	return &Resolver{pager: pager, cache: cache, getter: getter, Concurrency: 4}
}

// Lookup resolves without touching the network.
func (r *Resolver) Lookup(id int) (models.Movie, bool) {
	if r.pager != nil {
		if m, ok := r.pager.Lookup(id); ok {
			return m, true
		}
	}
	if r.cache != nil {
		m, ok, err := r.cache.GetMovie(id)
		if err != nil {
			log.Printf("Movie cache lookup for %d failed: %v", id, err)
			return models.Movie{}, false
		}
		return m, ok
	}
	return models.Movie{}, false
}

// Resolve looks the movie up locally and falls back to the backend,
// caching what it fetched.
func (r *Resolver) Resolve(ctx context.Context, id int) (models.Movie, error) {
	if m, ok := r.Lookup(id); ok {
		return m, nil
	}
	m, err := r.getter.GetMovie(ctx, id)
	if err != nil {
		return models.Movie{}, err
	}
	if r.cache != nil {
		if err := r.cache.PutMovie(*m); err != nil {
			log.Printf("Failed to cache movie %d: %v", id, err)
		}
	}
	return *m, nil
}

// ResolveAll resolves every identifier, in parallel. Identifiers that cannot
// be resolved are returned as placeholders; the result keeps the input order.
func (r *Resolver) ResolveAll(ctx context.Context, ids []int) []models.Movie {
	out := make([]models.Movie, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			m, err := r.Resolve(gctx, id)
			if err != nil {
				log.Printf("Could not resolve movie %d, using placeholder: %v", id, err)
				m = models.PlaceholderMovie(id)
			}
			out[i] = m
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Remember caches movies the pager has already loaded.
func (r *Resolver) Remember(movies []models.Movie) {
	if r.cache == nil {
		return
	}
	if err := r.cache.PutMovies(movies); err != nil {
		log.Printf("Failed to cache %d catalog movies: %v", len(movies), err)
	}
}
