// This file defines the catalog side of the data model: movies as the
// backend serves them and the paginated envelope they arrive in.

package models

import (
	"strconv"
	"strings"
)

// Movie is a single catalog entry. The client never mutates it.
type Movie struct {
	ID                  int      `json:"id"`
	Title               string   `json:"title"`
	PosterPath          string   `json:"poster_path"`
	BackgroundPath      string   `json:"background_path"`
	Year                string   `json:"year"`
	Description         string   `json:"description"`
	Genre               []string `json:"genre"`
	Duration            string   `json:"duration"`
	Tagline             string   `json:"tagline,omitempty"`
	VoteAverage         float64  `json:"vote_average,omitempty"`
	VoteCount           int      `json:"vote_count,omitempty"`
	Popularity          float64  `json:"popularity,omitempty"`
	ReleaseDate         string   `json:"release_date,omitempty"`
	OriginalTitle       string   `json:"original_title,omitempty"`
	OriginalLanguage    string   `json:"original_language,omitempty"`
	Homepage            string   `json:"homepage,omitempty"`
	ImdbID              *string  `json:"imdb_id,omitempty"`
	Budget              int      `json:"budget,omitempty"`
	Revenue             int      `json:"revenue,omitempty"`
	Runtime             int      `json:"runtime,omitempty"`
	ProductionCompanies []any    `json:"production_companies,omitempty"`
	ProductionCountries []any    `json:"production_countries,omitempty"`
	SpokenLanguages     []any    `json:"spoken_languages,omitempty"`
}

// ReleaseYear returns the numeric year, or 0 when the backend sent
// something that isn't a number (an empty string for unreleased titles).
func (m Movie) ReleaseYear() int {
	year := strings.TrimSpace(m.Year)
	if len(year) > 4 {
		year = year[:4]
	}
	n, err := strconv.Atoi(year)
	if err != nil {
		return 0
	}
	return n
}

// IsPlaceholder reports whether the movie carries no catalog metadata,
// i.e. it was synthesized for a watchlist entry whose movie could not be resolved.
func (m Movie) IsPlaceholder() bool {
	return m.Title == "" && m.PosterPath == "" && m.Year == ""
}

// PlaceholderMovie returns an empty movie carrying only its identifier.
func PlaceholderMovie(id int) Movie {
	return Movie{ID: id}
}

const (
	posterBaseURL     = "https://image.tmdb.org/t/p/w500"
	placeholderPoster = "https://via.placeholder.com/300x450/666666/FFFFFF?text=Movie"
)

// ImageURL turns a poster or background path into a full URL.
// Absolute URLs pass through untouched.
func ImageURL(path string) string {
	switch {
	case path == "":
		return placeholderPoster
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	default:
		return posterBaseURL + path
	}
}

// CatalogPage is one page of the catalog listing or of a search.
type CatalogPage struct {
	Results      []Movie `json:"results"`
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}
