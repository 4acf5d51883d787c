// Package catalog accumulates catalog pages for infinite scrolling, in
// either browse mode or search mode.
package catalog

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/movie-tracker/movietracker-web/internal/backend"
	"github.com/movie-tracker/movietracker-web/internal/models"
	"github.com/movie-tracker/movietracker-web/internal/retry"
)

// Fetcher is the part of the backend client the pager needs.
type Fetcher interface {
	ListMovies(ctx context.Context, page int) (*models.CatalogPage, error)
	SearchMovies(ctx context.Context, query string, page int) (*models.CatalogPage, error)
}

// State is the loading state of the pager.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	// StateError is terminal until Retry is called.
	StateError State = "error"
	// StateEmpty means a page came back and nothing matched.
	StateEmpty State = "empty"
)

// DefaultDebounce is the quiet period before a search term is committed.
const DefaultDebounce = 300 * time.Millisecond

// Status is a point-in-time view of the pager.
type Status struct {
	State      State  `json:"state"`
	Term       string `json:"term"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	HasMore    bool   `json:"has_more"`
	Loaded     int    `json:"loaded"`
	Error      string `json:"error,omitempty"`
}

// Options configure a Pager.
type Options struct {
	Debounce time.Duration
	Retry    retry.Policy
	Clock    retry.Clock
	// OnChange is called after every change of the accumulated sequence or state.
	OnChange func()
}

// Pager is the catalog pager. It is safe for concurrent use.
type Pager struct {
	fetcher  Fetcher
	debounce time.Duration
	policy   retry.Policy
	clock    retry.Clock
	onChange func()

	mu            sync.Mutex
	term          string
	debounceTimer retry.Timer
	generation    uint64
	movies        []models.Movie
	seen          map[int]bool
	lastPage      int
	totalPages    int
	inFlight      bool
	err           error
}

// NewPager creates a pager in browse mode with nothing loaded.
func NewPager(fetcher Fetcher, opts Options) *Pager {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = retry.RealClock
	}
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.DefaultPolicy
	}
	return &Pager{
		fetcher:  fetcher,
		debounce: opts.Debounce,
		policy:   opts.Retry,
		clock:    opts.Clock,
		onChange: opts.OnChange,
		seen:     make(map[int]bool),
	}
}

// Movies returns a copy of the accumulated, deduplicated sequence.
func (p *Pager) Movies() []models.Movie {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Movie, len(p.movies))
	copy(out, p.movies)
	return out
}

// Lookup returns an accumulated movie by identifier.
func (p *Pager) Lookup(id int) (models.Movie, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen[id] {
		return models.Movie{}, false
	}
	for _, m := range p.movies {
		if m.ID == id {
			return m, true
		}
	}
	return models.Movie{}, false
}

// Term returns the committed search term; "" means browse mode.
func (p *Pager) Term() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term
}

// HasMore reports whether another page exists for the active mode.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMoreLocked()
}

func (p *Pager) hasMoreLocked() bool {
	if p.lastPage == 0 {
		return true
	}
	return p.lastPage < p.totalPages
}

// Status returns the current pager status.
func (p *Pager) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		State:      StateIdle,
		Term:       p.term,
		Page:       p.lastPage,
		TotalPages: p.totalPages,
		HasMore:    p.hasMoreLocked(),
		Loaded:     len(p.movies),
	}
	switch {
	case p.inFlight:
		st.State = StateLoading
	case p.err != nil:
		st.State = StateError
		st.Error = p.err.Error()
	case p.lastPage > 0 && len(p.movies) == 0:
		st.State = StateEmpty
	}
	return st
}

// FetchNext loads the next page of the active mode. It is a no-op, returning
// nil, while a fetch is already in flight, when no more pages exist, or
// while the pager is in the terminal error state.
func (p *Pager) FetchNext(ctx context.Context) error {
	p.mu.Lock()
	if p.inFlight || !p.hasMoreLocked() || p.err != nil {
		p.mu.Unlock()
		return nil
	}
	p.inFlight = true
	gen := p.generation
	term := p.term
	page := p.lastPage + 1
	p.mu.Unlock()
	p.notify()

	result, err := p.fetchWithRetry(ctx, term, page)

	p.mu.Lock()
	if gen != p.generation {
		// The mode changed while we were waiting; this result is stale.
		p.mu.Unlock()
		return nil
	}
	p.inFlight = false
	if err != nil {
		p.err = err
		p.mu.Unlock()
		log.Printf("Catalog page %d (term=%q) failed: %v", page, term, err)
		p.notify()
		return err
	}
	p.mergeLocked(result)
	p.mu.Unlock()
	p.notify()
	return nil
}

func (p *Pager) fetchWithRetry(ctx context.Context, term string, page int) (*models.CatalogPage, error) {
	var result *models.CatalogPage
	err := retry.Do(ctx, p.policy, p.clock, isRetryable,
		func(attempt int, delay time.Duration, err error) {
			log.Printf("Retrying catalog page %d in %s (attempt %d): %v", page, delay, attempt, err)
		},
		func(ctx context.Context) error {
			var err error
			if term == "" {
				result, err = p.fetcher.ListMovies(ctx, page)
			} else {
				result, err = p.fetcher.SearchMovies(ctx, term, page)
			}
			return err
		})
	return result, err
}

// isRetryable leaves out failures that another attempt cannot fix.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch backend.KindOf(err) {
	case backend.ErrAuth, backend.ErrValidation, backend.ErrNotFound:
		return false
	}
	return true
}

// mergeLocked appends the page's movies in order, skipping identifiers
// already accumulated.
func (p *Pager) mergeLocked(result *models.CatalogPage) {
	for _, m := range result.Results {
		if p.seen[m.ID] {
			continue
		}
		p.seen[m.ID] = true
		p.movies = append(p.movies, m)
	}
	if result.Page > p.lastPage {
		p.lastPage = result.Page
	}
	p.totalPages = result.TotalPages
}

// Retry leaves the error state and fetches the page that failed.
func (p *Pager) Retry(ctx context.Context) error {
	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()
	return p.FetchNext(ctx)
}

// SentinelVisible is called when the loading sentinel at the end of the
// list scrolls into view. It starts a fetch when none is in flight, more
// pages exist, and no filter makes further pages pointless. It reports
// whether a fetch was started.
func (p *Pager) SentinelVisible(ctx context.Context, filterBlocksPaging bool) bool {
	if filterBlocksPaging {
		return false
	}
	p.mu.Lock()
	ready := !p.inFlight && p.err == nil && p.hasMoreLocked()
	p.mu.Unlock()
	if !ready {
		return false
	}
	go func() {
		if err := p.FetchNext(ctx); err != nil {
			log.Printf("Sentinel-triggered fetch failed: %v", err)
		}
	}()
	return true
}

// SetSearchTerm records an edit of the search box. The term is committed
// only after the debounce window passes with no further edits.
func (p *Pager) SetSearchTerm(term string) {
	term = strings.TrimSpace(term)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounceTimer != nil {
		p.debounceTimer.Stop()
	}
	p.debounceTimer = p.clock.AfterFunc(p.debounce, func() {
		p.CommitSearchTerm(context.Background(), term)
	})
}

// CommitSearchTerm switches mode immediately. When the term differs from
// the committed one the accumulation is dropped and page 1 of the new mode
// is fetched in the background.
func (p *Pager) CommitSearchTerm(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	if !p.switchTerm(term) {
		return
	}
	go func() {
		if err := p.FetchNext(ctx); err != nil {
			log.Printf("Fetching first page for term %q failed: %v", term, err)
		}
	}()
}

// LoadPages commits term and fetches until at least pages pages are loaded
// or the listing is exhausted. It blocks, for callers without a scroll
// sentinel.
func (p *Pager) LoadPages(ctx context.Context, term string, pages int) error {
	p.switchTerm(strings.TrimSpace(term))
	for {
		before := p.Status()
		if before.State == StateError {
			return errors.New(before.Error)
		}
		if before.Page >= pages || !before.HasMore {
			return nil
		}
		if err := p.FetchNext(ctx); err != nil {
			return err
		}
		if p.Status().Page == before.Page {
			// Another caller holds the fetch; stop rather than spin.
			return nil
		}
	}
}

// switchTerm resets the accumulation unless term is already committed and
// either loaded or loading. It reports whether a reset happened.
func (p *Pager) switchTerm(term string) bool {
	p.mu.Lock()
	if term == p.term && (p.lastPage > 0 || p.inFlight) {
		p.mu.Unlock()
		return false
	}
	p.resetLocked(term)
	p.mu.Unlock()
	p.notify()
	return true
}

// Reset drops everything accumulated and returns to browse mode.
func (p *Pager) Reset() {
	p.mu.Lock()
	if p.debounceTimer != nil {
		p.debounceTimer.Stop()
		p.debounceTimer = nil
	}
	p.resetLocked("")
	p.mu.Unlock()
	p.notify()
}

func (p *Pager) resetLocked(term string) {
	p.generation++
	p.term = term
	p.movies = nil
	p.seen = make(map[int]bool)
	p.lastPage = 0
	p.totalPages = 0
	p.inFlight = false
	p.err = nil
}

func (p *Pager) notify() {
	if p.onChange != nil {
		p.onChange()
	}
}
