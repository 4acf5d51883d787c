package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

// ListMovies fetches one page of the catalog.
func (c *Client) ListMovies(ctx context.Context, page int) (*models.CatalogPage, error) {
	var result models.CatalogPage
	q := url.Values{"page": {strconv.Itoa(page)}}
	if err := c.do(ctx, "GET", "/movies", q, nil, &result); err != nil {
		return nil, fmt.Errorf("list movies page %d: %w", page, err)
	}
	return &result, nil
}

// SearchMovies fetches one page of search results for query.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*models.CatalogPage, error) {
	var result models.CatalogPage
	q := url.Values{"query": {query}, "page": {strconv.Itoa(page)}}
	if err := c.do(ctx, "GET", "/movies/search", q, nil, &result); err != nil {
		return nil, fmt.Errorf("search movies %q page %d: %w", query, page, err)
	}
	return &result, nil
}

// GetMovie fetches a single movie.
func (c *Client) GetMovie(ctx context.Context, id int) (*models.Movie, error) {
	var movie models.Movie
	if err := c.do(ctx, "GET", fmt.Sprintf("/movies/%d", id), nil, nil, &movie); err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return &movie, nil
}
