package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/util"
)

// StatusFilter selects which records are shown.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterUnwatched StatusFilter = StatusFilter(models.StatusUnwatched)
)

// ParseStatusFilter accepts "all", "unwatched" or a storable status.
// The empty string means "all".
func ParseStatusFilter(raw string) (StatusFilter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == string(FilterAll) {
		return FilterAll, nil
	}
	s, err := models.ParseStatus(raw)
	if err != nil {
		return "", err
	}
	return StatusFilter(s), nil
}

// IsConcrete reports whether the filter names a storable status.
func (f StatusFilter) IsConcrete() bool {
	return models.Status(f).IsStorable()
}

// SortOrder names a comparator.
type SortOrder string

const (
	SortNone             SortOrder = ""
	SortAlphabeticalAsc  SortOrder = "alphabetical-asc"
	SortAlphabeticalDesc SortOrder = "alphabetical-desc"
	SortRatingDesc       SortOrder = "rating-desc"
	SortRatingAsc        SortOrder = "rating-asc"
	SortYearDesc         SortOrder = "year-desc"
	SortYearAsc          SortOrder = "year-asc"
	SortStatus           SortOrder = "status"
)

// ParseSortOrder validates a sort name.
func ParseSortOrder(raw string) (SortOrder, error) {
	o := SortOrder(strings.ToLower(strings.TrimSpace(raw)))
	switch o {
	case SortNone, SortAlphabeticalAsc, SortAlphabeticalDesc, SortRatingDesc,
		SortRatingAsc, SortYearDesc, SortYearAsc, SortStatus:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", raw)
}

// Criteria is everything the engine needs besides the data.
type Criteria struct {
	Status        StatusFilter
	FavoritesOnly bool
	Search        string
	// SearchOnServer means the catalog was already searched by the backend,
	// so the term is not applied again here.
	SearchOnServer bool
	Sort           SortOrder
}

// BlocksPaging reports whether the criteria are satisfied from the
// snapshot alone, making further catalog pages pointless.
func (c Criteria) BlocksPaging() bool {
	return c.Status.IsConcrete()
}

// MovieLookup resolves movie metadata that may not be in the catalog window.
type MovieLookup func(id int) (models.Movie, bool)

// Apply filters the joined records and sorts the result. The input slices
// are never modified.
//
// A concrete status filter switches the source from the joined catalog to
// the snapshot itself, since an entry may reference a movie outside the
// loaded catalog pages. Its movies come from lookup, or are placeholders.
func Apply(joined []models.JoinedMovie, snapshot []models.WatchlistEntry, lookup MovieLookup, c Criteria) []models.JoinedMovie {
	var out []models.JoinedMovie

	switch {
	case c.Status.IsConcrete():
		catalog := make(map[int]models.Movie, len(joined))
		for _, j := range joined {
			catalog[j.ID] = j.Movie
		}
		for _, e := range snapshot {
			if e.Status != models.Status(c.Status) {
				continue
			}
			movie, ok := catalog[e.MovieID]
			if !ok && lookup != nil {
				movie, ok = lookup(e.MovieID)
			}
			if !ok {
				movie = models.PlaceholderMovie(e.MovieID)
			}
			entry := e
			out = append(out, models.JoinedMovie{Movie: movie, Entry: &entry, IsInWatchlist: true})
		}
	case c.Status == FilterUnwatched:
		for _, j := range joined {
			if !j.IsInWatchlist {
				out = append(out, j)
			}
		}
	default:
		out = append(out, joined...)
	}

	if c.FavoritesOnly {
		out = keep(out, func(j models.JoinedMovie) bool { return j.IsFavorite() })
	}

	if term := strings.ToLower(strings.TrimSpace(c.Search)); term != "" && !c.SearchOnServer {
		out = keep(out, func(j models.JoinedMovie) bool {
			return strings.Contains(strings.ToLower(j.Title), term)
		})
	}

	Sort(out, c.Sort)
	if out == nil {
		out = []models.JoinedMovie{}
	}
	return out
}

func keep(in []models.JoinedMovie, pred func(models.JoinedMovie) bool) []models.JoinedMovie {
	out := in[:0:0]
	for _, j := range in {
		if pred(j) {
			out = append(out, j)
		}
	}
	return out
}

var statusRank = map[models.Status]int{
	models.StatusWatched:     0,
	models.StatusWatching:    1,
	models.StatusPlanToWatch: 2,
	models.StatusUnwatched:   3,
}

// Sort orders records in place with a stable sort. Callers pass a copy.
func Sort(records []models.JoinedMovie, order SortOrder) {
	var less func(a, b models.JoinedMovie) bool
	switch order {
	case SortAlphabeticalAsc:
		less = func(a, b models.JoinedMovie) bool { return util.CompareTitles(a.Title, b.Title) < 0 }
	case SortAlphabeticalDesc:
		less = func(a, b models.JoinedMovie) bool { return util.CompareTitles(a.Title, b.Title) > 0 }
	case SortRatingDesc:
		less = func(a, b models.JoinedMovie) bool { return rating(a) > rating(b) }
	case SortRatingAsc:
		less = func(a, b models.JoinedMovie) bool { return rating(a) < rating(b) }
	case SortYearDesc:
		less = func(a, b models.JoinedMovie) bool { return a.ReleaseYear() > b.ReleaseYear() }
	case SortYearAsc:
		less = func(a, b models.JoinedMovie) bool { return a.ReleaseYear() < b.ReleaseYear() }
	case SortStatus:
		less = func(a, b models.JoinedMovie) bool {
			return statusRank[a.EffectiveStatus()] < statusRank[b.EffectiveStatus()]
		}
	default:
		return
	}
	sort.SliceStable(records, func(i, j int) bool { return less(records[i], records[j]) })
}

func rating(j models.JoinedMovie) int {
	if j.Entry == nil {
		return 0
	}
	return j.Entry.RatingValue()
}
