package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the watch state of a watchlist entry.
type Status string

const (
	StatusPlanToWatch Status = "plan to watch"
	StatusWatching    Status = "watching"
	StatusWatched     Status = "watched"
	// StatusUnwatched is never stored. It denotes that no entry exists.
	StatusUnwatched Status = "unwatched"
)

// MaxCommentLength bounds the free-text comment of an entry.
const MaxCommentLength = 100

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// IsStorable reports whether the status can be persisted on an entry.
func (s Status) IsStorable() bool {
	switch s {
	case StatusPlanToWatch, StatusWatching, StatusWatched:
		return true
	}
	return false
}

// ParseStatus validates a status coming from outside the core.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.IsStorable() || s == StatusUnwatched {
		return s, nil
	}
	return "", fmt.Errorf("unknown watch status %q", raw)
}

// WatchlistEntry is a user's personal record for one movie.
// Comment and Rating are nil when absent; nothing else means "absent".
type WatchlistEntry struct {
	ID       int     `json:"id"`
	UserID   int     `json:"user_id"`
	MovieID  int     `json:"movie_id"`
	Status   Status  `json:"status"`
	Favorite bool    `json:"favorite"`
	Comment  *string `json:"comments,omitempty"`
	Rating   *int    `json:"rating,omitempty"`
}

// UnmarshalJSON normalizes the optional fields on ingest: a null, missing
// or blank comment and a null, missing or zero rating all become nil.
func (e *WatchlistEntry) UnmarshalJSON(data []byte) error {
	type wire WatchlistEntry
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = WatchlistEntry(w)
	e.Comment = NormalizeComment(e.Comment)
	e.Rating = NormalizeRating(e.Rating)
	return nil
}

// CommentText returns the comment or "" when absent.
func (e WatchlistEntry) CommentText() string {
	if e.Comment == nil {
		return ""
	}
	return *e.Comment
}

// RatingValue returns the rating or 0 when absent.
func (e WatchlistEntry) RatingValue() int {
	if e.Rating == nil {
		return 0
	}
	return *e.Rating
}

// NormalizeComment maps blank comments to nil.
func NormalizeComment(c *string) *string {
	if c == nil || strings.TrimSpace(*c) == "" {
		return nil
	}
	v := *c
	return &v
}

// NormalizeRating maps a zero rating to nil.
func NormalizeRating(r *int) *int {
	if r == nil || *r == 0 {
		return nil
	}
	v := *r
	return &v
}

// EntryFields is the mutable part of an entry, as sent on create and full update.
type EntryFields struct {
	Status   Status
	Favorite bool
	Comment  *string
	Rating   *int
}

// Validate checks the field bounds. It returns a map of field name to
// message, empty when everything is valid.
func (f EntryFields) Validate() map[string]string {
	problems := map[string]string{}
	if f.Status != "" && !f.Status.IsStorable() && f.Status != StatusUnwatched {
		problems["status"] = "unknown status"
	}
	if f.Comment != nil && len([]rune(*f.Comment)) > MaxCommentLength {
		problems["comments"] = fmt.Sprintf("must be at most %d characters", MaxCommentLength)
	}
	if f.Rating != nil && (*f.Rating < MinRating || *f.Rating > MaxRating) {
		problems["rating"] = fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)
	}
	return problems
}

// Fields extracts the mutable part of an entry.
func (e WatchlistEntry) Fields() EntryFields {
	return EntryFields{
		Status:   e.Status,
		Favorite: e.Favorite,
		Comment:  e.Comment,
		Rating:   e.Rating,
	}
}

// StringPtr and IntPtr are small helpers for optional fields.
func StringPtr(s string) *string { return &s }
func IntPtr(i int) *int          { return &i }
