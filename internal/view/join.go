// Package view derives what the UI renders from the catalog accumulation
// and the watchlist snapshot: the joined records, the filtered and sorted
// list, and the summary counts. Everything here is a pure function.
package view

import "github.com/movie-tracker/movietracker-web/internal/models"

// Join pairs every movie with its watchlist entry, keyed by movie identifier.
// The result has one record per movie, in the movies' order.
func Join(movies []models.Movie, snapshot []models.WatchlistEntry) []models.JoinedMovie {
	byMovie := indexByMovie(snapshot)
	joined := make([]models.JoinedMovie, len(movies))
	for i, m := range movies {
		joined[i] = models.JoinedMovie{Movie: m}
		if entry, ok := byMovie[m.ID]; ok {
			e := entry
			joined[i].Entry = &e
			joined[i].IsInWatchlist = true
		}
	}
	return joined
}

// JoinOne joins a single movie, as the details screen needs.
func JoinOne(movie models.Movie, snapshot []models.WatchlistEntry) models.JoinedMovie {
	return Join([]models.Movie{movie}, snapshot)[0]
}

// EntryForMovie finds the snapshot entry of a movie.
func EntryForMovie(snapshot []models.WatchlistEntry, movieID int) (models.WatchlistEntry, bool) {
	for _, e := range snapshot {
		if e.MovieID == movieID {
			return e, true
		}
	}
	return models.WatchlistEntry{}, false
}

// indexByMovie keeps the first entry seen per movie.
func indexByMovie(snapshot []models.WatchlistEntry) map[int]models.WatchlistEntry {
	byMovie := make(map[int]models.WatchlistEntry, len(snapshot))
	for _, e := range snapshot {
		if _, dup := byMovie[e.MovieID]; !dup {
			byMovie[e.MovieID] = e
		}
	}
	return byMovie
}
