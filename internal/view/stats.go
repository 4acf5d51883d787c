package view

import "github.com/movie-tracker/movietracker-web/internal/models"

// ComputeStats counts the snapshot by status and favorite. showing is the
// length of the list currently rendered.
func ComputeStats(snapshot []models.WatchlistEntry, showing int) models.Stats {
	st := models.Stats{InWatchlist: len(snapshot), Showing: showing}
	for _, e := range snapshot {
		switch e.Status {
		case models.StatusWatched:
			st.Watched++
		case models.StatusWatching:
			st.Watching++
		case models.StatusPlanToWatch:
			st.PlanToWatch++
		}
		if e.Favorite {
			st.Favorites++
		}
	}
	return st
}

// PresentStatuses lists the distinct statuses found in the snapshot, in
// watched, watching, plan-to-watch order.
func PresentStatuses(snapshot []models.WatchlistEntry) []models.Status {
	present := map[models.Status]bool{}
	for _, e := range snapshot {
		present[e.Status] = true
	}
	var out []models.Status
	for _, s := range []models.Status{models.StatusWatched, models.StatusWatching, models.StatusPlanToWatch} {
		if present[s] {
			out = append(out, s)
		}
	}
	return out
}
