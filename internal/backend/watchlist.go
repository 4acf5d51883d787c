package backend

import (
	"context"
	"fmt"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

type createEntryRequest struct {
	MovieID  int           `json:"movie_id"`
	Status   models.Status `json:"status,omitempty"`
	Favorite bool          `json:"favorite,omitempty"`
	Comments *string       `json:"comments,omitempty"`
	Rating   *int          `json:"rating,omitempty"`
}

// updateEntryRequest always carries comments so that clearing one reaches
// the backend as an empty string.
type updateEntryRequest struct {
	Status   models.Status `json:"status,omitempty"`
	Favorite *bool         `json:"favorite,omitempty"`
	Comments string        `json:"comments"`
	Rating   *int          `json:"rating,omitempty"`
}

// ListWatchlist fetches the authenticated user's whole watchlist.
func (c *Client) ListWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	if err := c.do(ctx, "GET", "/watchlist", nil, nil, &entries); err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	if entries == nil {
		entries = []models.WatchlistEntry{}
	}
	return entries, nil
}

// AddEntry creates an entry for movieID.
func (c *Client) AddEntry(ctx context.Context, movieID int, f models.EntryFields) (*models.WatchlistEntry, error) {
	body := createEntryRequest{
		MovieID:  movieID,
		Status:   f.Status,
		Favorite: f.Favorite,
		Comments: models.NormalizeComment(f.Comment),
		Rating:   models.NormalizeRating(f.Rating),
	}
	var entry models.WatchlistEntry
	if err := c.do(ctx, "POST", "/watchlist", nil, body, &entry); err != nil {
		return nil, fmt.Errorf("add movie %d to watchlist: %w", movieID, err)
	}
	return &entry, nil
}

// UpdateStatus changes the status of entry id.
func (c *Client) UpdateStatus(ctx context.Context, id int, status models.Status) (*models.WatchlistEntry, error) {
	var entry models.WatchlistEntry
	body := map[string]models.Status{"status": status}
	if err := c.do(ctx, "PATCH", fmt.Sprintf("/watchlist/%d/status", id), nil, body, &entry); err != nil {
		return nil, fmt.Errorf("update status of entry %d: %w", id, err)
	}
	return &entry, nil
}

// SetFavorite sets the favorite flag of entry id.
func (c *Client) SetFavorite(ctx context.Context, id int, favorite bool) (*models.WatchlistEntry, error) {
	var entry models.WatchlistEntry
	body := map[string]bool{"favorite": favorite}
	if err := c.do(ctx, "PATCH", fmt.Sprintf("/watchlist/%d/favorite", id), nil, body, &entry); err != nil {
		return nil, fmt.Errorf("set favorite of entry %d: %w", id, err)
	}
	return &entry, nil
}

// UpdateRating sets the rating of entry id. A nil rating clears it.
func (c *Client) UpdateRating(ctx context.Context, id int, rating *int) (*models.WatchlistEntry, error) {
	var entry models.WatchlistEntry
	body := map[string]*int{"rating": models.NormalizeRating(rating)}
	if err := c.do(ctx, "PATCH", fmt.Sprintf("/watchlist/%d/rating", id), nil, body, &entry); err != nil {
		return nil, fmt.Errorf("update rating of entry %d: %w", id, err)
	}
	return &entry, nil
}

// UpdateEntry replaces status, favorite, comment and rating of entry id.
func (c *Client) UpdateEntry(ctx context.Context, id int, f models.EntryFields) (*models.WatchlistEntry, error) {
	favorite := f.Favorite
	body := updateEntryRequest{
		Status:   f.Status,
		Favorite: &favorite,
		Rating:   models.NormalizeRating(f.Rating),
	}
	if comment := models.NormalizeComment(f.Comment); comment != nil {
		body.Comments = *comment
	}
	var entry models.WatchlistEntry
	if err := c.do(ctx, "PUT", fmt.Sprintf("/watchlist/%d", id), nil, body, &entry); err != nil {
		return nil, fmt.Errorf("update entry %d: %w", id, err)
	}
	return &entry, nil
}

// RemoveEntry deletes entry id.
func (c *Client) RemoveEntry(ctx context.Context, id int) error {
	if err := c.do(ctx, "DELETE", fmt.Sprintf("/watchlist/%d", id), nil, nil, nil); err != nil {
		return fmt.Errorf("remove entry %d: %w", id, err)
	}
	return nil
}
