// Package dialog implements the single edit dialog for a movie's
// watchlist entry: closed, open, saving, and back.
package dialog

import (
	"context"
	"errors"
	"sync"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/models"
)

// State of the dialog.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
	StateSaving State = "saving"
)

var (
	ErrNotOpen = errors.New("edit dialog is not open")
	ErrSaving  = errors.New("edit dialog is saving")
	// ErrReplaced is returned by a save whose dialog was closed or replaced
	// before the save finished. The mutation itself may have succeeded.
	ErrReplaced = errors.New("edit dialog was closed while saving")
)

// Mutator dispatches the save.
type Mutator interface {
	Add(ctx context.Context, movieID int, f models.EntryFields) (*models.WatchlistEntry, error)
	UpdateItem(ctx context.Context, entryID int, f models.EntryFields) (*models.WatchlistEntry, error)
	Remove(ctx context.Context, entryID int) error
}

// Draft holds the user's edits.
type Draft struct {
	Status   models.Status `json:"status"`
	Favorite bool          `json:"favorite"`
	Comment  string        `json:"comments"`
	Rating   *int          `json:"rating"`
}

func (d Draft) fields() models.EntryFields {
	return models.EntryFields{
		Status:   d.Status,
		Favorite: d.Favorite,
		Comment:  models.NormalizeComment(&d.Comment),
		Rating:   models.NormalizeRating(d.Rating),
	}
}

// View is a copy of the dialog's state for rendering.
type View struct {
	State       State             `json:"state"`
	Movie       *models.Movie     `json:"movie,omitempty"`
	EntryID     int               `json:"entry_id,omitempty"`
	Draft       Draft             `json:"draft"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Dialog is owned by one screen. It is safe for concurrent use.
type Dialog struct {
	mutator Mutator

	mu    sync.Mutex
	state State
	movie models.Movie
	entry *models.WatchlistEntry
	draft Draft
	err   error
	// generation changes on every open and close, so a save that outlives
	// its dialog cannot touch the next one.
	generation uint64
}

// New creates a closed dialog.
func New(m Mutator) *Dialog {
	return &Dialog{mutator: m, state: StateClosed}
}

// Open seeds the dialog from a joined movie, replacing any dialog already open.
func (d *Dialog) Open(jm models.JoinedMovie) View {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	d.state = StateOpen
	d.movie = jm.Movie
	d.err = nil
	d.entry = nil
	d.draft = Draft{Status: models.StatusPlanToWatch}
	if jm.Entry != nil {
		e := *jm.Entry
		d.entry = &e
		d.draft = Draft{Status: e.Status, Favorite: e.Favorite, Comment: e.CommentText(), Rating: e.Rating}
	}
	return d.viewLocked()
}

// Edit replaces the draft.
func (d *Dialog) Edit(draft Draft) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case StateClosed:
		return d.viewLocked(), ErrNotOpen
	case StateSaving:
		return d.viewLocked(), ErrSaving
	}
	d.draft = draft
	return d.viewLocked(), nil
}

// Cancel closes the dialog and discards the draft.
func (d *Dialog) Cancel() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return d.viewLocked()
}

// Save dispatches the draft. The dialog closes only when the mutation
// succeeded; on failure it reopens with the draft intact and the error set.
func (d *Dialog) Save(ctx context.Context) (View, error) {
	d.mu.Lock()
	switch d.state {
	case StateClosed:
		v := d.viewLocked()
		d.mu.Unlock()
		return v, ErrNotOpen
	case StateSaving:
		v := d.viewLocked()
		d.mu.Unlock()
		return v, ErrSaving
	}
	d.state = StateSaving
	d.err = nil
	gen := d.generation
	movieID := d.movie.ID
	var entryID int
	if d.entry != nil {
		entryID = d.entry.ID
	}
	f := d.draft.fields()
	d.mu.Unlock()

	err := d.dispatch(ctx, movieID, entryID, f)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		return d.viewLocked(), ErrReplaced
	}
	if err != nil {
		d.state = StateOpen
		d.err = err
		return d.viewLocked(), err
	}
	d.closeLocked()
	return d.viewLocked(), nil
}

// View returns the current state.
func (d *Dialog) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *Dialog) dispatch(ctx context.Context, movieID, entryID int, f models.EntryFields) error {
	if entryID == 0 {
		if f.Status == models.StatusUnwatched {
			// Nothing stored and nothing to store.
			return nil
		}
		_, err := d.mutator.Add(ctx, movieID, f)
		return err
	}
	if f.Status == models.StatusUnwatched {
		return d.mutator.Remove(ctx, entryID)
	}
	_, err := d.mutator.UpdateItem(ctx, entryID, f)
	return err
}

func (d *Dialog) closeLocked() {
	d.generation++
	d.state = StateClosed
	d.movie = models.Movie{}
	d.entry = nil
	d.draft = Draft{}
	d.err = nil
}

func (d *Dialog) viewLocked() View {
	v := View{State: d.state, Draft: d.draft}
	if d.draft.Rating != nil {
		r := *d.draft.Rating
		v.Draft.Rating = &r
	}
	if d.state != StateClosed {
		m := d.movie
		v.Movie = &m
	}
	if d.entry != nil {
		v.EntryID = d.entry.ID
	}
	if d.err != nil {
		v.Error = d.err.Error()
		v.FieldErrors = backend.FieldErrors(d.err)
	}
	return v
}
