// This file defines the derived, never-persisted records the UI reads.

package models

// JoinedMovie is a catalog movie combined with the user's entry for it, if any.
type JoinedMovie struct {
	Movie
	Entry         *WatchlistEntry `json:"watchlist_item,omitempty"`
	IsInWatchlist bool            `json:"is_in_watchlist"`
}

// EffectiveStatus returns the entry's status, or StatusUnwatched when absent.
func (j JoinedMovie) EffectiveStatus() Status {
	if j.Entry == nil {
		return StatusUnwatched
	}
	return j.Entry.Status
}

// IsFavorite reports whether the movie is in the watchlist and favorited.
func (j JoinedMovie) IsFavorite() bool {
	return j.Entry != nil && j.Entry.Favorite
}

// Stats summarizes the watchlist snapshot and the currently rendered list.
type Stats struct {
	InWatchlist int `json:"in_watchlist"`
	Watched     int `json:"watched"`
	Watching    int `json:"watching"`
	PlanToWatch int `json:"plan_to_watch"`
	Favorites   int `json:"favorites"`
	Showing     int `json:"showing"`
}
