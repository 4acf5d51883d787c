package models

// Change event types pushed to connected tabs.
const (
	EventCatalog   = "catalog"
	EventWatchlist = "watchlist"
	EventSession   = "session"
	EventJob       = "job"
)

// ChangeEvent tells a tab which part of its state went stale.
type ChangeEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
