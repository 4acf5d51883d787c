// A fake of the movie tracker REST backend, for tests that exercise the
// real HTTP client end to end.

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

const fakeSigningKey = "fake-backend-key"

type fakeAccount struct {
	user     models.User
	password string
}

// FakeBackend serves the backend contract from memory. Every exported
// method is safe to call while requests are in flight.
type FakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	pageSize int
	movies   []models.Movie
	accounts map[string]*fakeAccount
	revoked  map[string]bool
	entries  map[int]models.WatchlistEntry // by entry id
	nextID   int
	nextUser int
	calls    map[string]int
	failures map[string][]int
	delay    time.Duration
}

// NewFakeBackend starts a fake backend. It is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		t:        t,
		pageSize: 20,
		accounts: map[string]*fakeAccount{},
		revoked:  map[string]bool{},
		entries:  map[int]models.WatchlistEntry{},
		nextID:   100,
		nextUser: 1,
		calls:    map[string]int{},
		failures: map[string][]int{},
	}

	r := chi.NewRouter()
	r.Use(f.instrument)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", f.handleLogin)
		r.Post("/auth/register", f.handleRegister)
		r.Group(func(r chi.Router) {
			r.Use(f.requireToken)
			r.Get("/users/profile", f.handleProfile)
			r.Get("/movies", f.handleListMovies)
			r.Get("/movies/search", f.handleSearchMovies)
			r.Get("/movies/{id}", f.handleGetMovie)
			r.Get("/watchlist", f.handleListWatchlist)
			r.Post("/watchlist", f.handleAddEntry)
			r.Patch("/watchlist/{id}/status", f.handlePatch("status"))
			r.Patch("/watchlist/{id}/favorite", f.handlePatch("favorite"))
			r.Patch("/watchlist/{id}/rating", f.handlePatch("rating"))
			r.Put("/watchlist/{id}", f.handlePutEntry)
			r.Delete("/watchlist/{id}", f.handleDeleteEntry)
		})
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

// URL is the API root to hand to backend.New.
func (f *FakeBackend) URL() string { return f.srv.URL + "/api" }

// SetPageSize changes how many movies one catalog page holds.
func (f *FakeBackend) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// SetDelay makes every request wait before being served.
func (f *FakeBackend) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// AddMovies appends movies to the catalog, in catalog order.
func (f *FakeBackend) AddMovies(movies ...models.Movie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movies = append(f.movies, movies...)
}

// AddUser creates an account and returns its profile.
func (f *FakeBackend) AddUser(username, password string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(models.Registration{Name: username, Username: username, Email: username + "@example.com", Password: password})
}

func (f *FakeBackend) addUserLocked(reg models.Registration) models.User {
	u := models.User{ID: f.nextUser, Name: reg.Name, Username: reg.Username, Email: reg.Email, Phone: reg.Phone}
	f.nextUser++
	f.accounts[reg.Username] = &fakeAccount{user: u, password: reg.Password}
	return u
}

// AddEntry stores a watchlist entry directly, as another session would.
func (f *FakeBackend) AddEntry(e models.WatchlistEntry) models.WatchlistEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == 0 {
		f.nextID++
		e.ID = f.nextID
	}
	f.entries[e.ID] = e
	return e
}

// Entries returns the stored entries ordered by id.
func (f *FakeBackend) Entries() []models.WatchlistEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedEntriesLocked()
}

// Token issues a valid token for username without a login request.
func (f *FakeBackend) Token(username string) string {
	return f.issueToken(username, time.Now().Add(time.Hour))
}

// ExpiredToken issues a token whose exp claim has passed.
func (f *FakeBackend) ExpiredToken(username string) string {
	return f.issueToken(username, time.Now().Add(-time.Hour))
}

// Revoke makes the backend reject token from now on.
func (f *FakeBackend) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = true
}

// FailNext makes the next requests to route ("GET /watchlist") answer with
// the given statuses, one per request.
func (f *FakeBackend) FailNext(route string, statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = append(f.failures[route], statuses...)
}

// Calls returns how many requests route ("GET /watchlist") received.
func (f *FakeBackend) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *FakeBackend) issueToken(username string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(fakeSigningKey))
	if err != nil {
		f.t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// routeKey collapses numeric path segments so counters are per route.
func routeKey(r *http.Request) string {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	for i, p := range parts {
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return r.Method + " " + strings.Join(parts, "/")
}

func (f *FakeBackend) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r)
		f.mu.Lock()
		f.calls[key]++
		delay := f.delay
		var fail int
		if queue := f.failures[key]; len(queue) > 0 {
			fail, f.failures[key] = queue[0], queue[1:]
		}
		f.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if fail != 0 {
			writeError(w, fail, http.StatusText(fail), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (f *FakeBackend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(fakeSigningKey), nil
		})
		f.mu.Lock()
		account := f.accounts[claims.Subject]
		revoked := f.revoked[raw]
		f.mu.Unlock()
		if err != nil || account == nil || revoked {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	f.mu.Lock()
	account := f.accounts[body.Username]
	f.mu.Unlock()
	if account == nil || account.password != body.Password {
		writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authToken": f.Token(body.Username)})
}

func (f *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[reg.Username]; exists {
		writeError(w, http.StatusConflict, "Username already taken", map[string]string{"username": "already taken"})
		return
	}
	writeJSON(w, http.StatusCreated, f.addUserLocked(reg))
}

func (f *FakeBackend) currentUser(r *http.Request) models.User {
	claims := &jwt.RegisteredClaims{}
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	_, _, _ = jwt.NewParser().ParseUnverified(raw, claims)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[claims.Subject].user
}

func (f *FakeBackend) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, f.currentUser(r))
}

func (f *FakeBackend) page(movies []models.Movie, r *http.Request) models.CatalogPage {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	f.mu.Lock()
	size := f.pageSize
	f.mu.Unlock()

	totalPages := (len(movies) + size - 1) / size
	start := (page - 1) * size
	end := start + size
	if start > len(movies) {
		start = len(movies)
	}
	if end > len(movies) {
		end = len(movies)
	}
	return models.CatalogPage{
		Results:      append([]models.Movie{}, movies[start:end]...),
		Page:         page,
		TotalPages:   totalPages,
		TotalResults: len(movies),
	}
}

func (f *FakeBackend) handleListMovies(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	movies := append([]models.Movie(nil), f.movies...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.page(movies, r))
}

func (f *FakeBackend) handleSearchMovies(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("query"))
	var matches []models.Movie
	f.mu.Lock()
	for _, m := range f.movies {
		if strings.Contains(strings.ToLower(m.Title), query) {
			matches = append(matches, m)
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.page(matches, r))
}

func (f *FakeBackend) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.movies {
		if m.ID == id {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Movie not found", nil)
}

func (f *FakeBackend) sortedEntriesLocked() []models.WatchlistEntry {
	out := make([]models.WatchlistEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *FakeBackend) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	user := f.currentUser(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.WatchlistEntry{}
	for _, e := range f.sortedEntriesLocked() {
		if e.UserID == 0 || e.UserID == user.ID {
			out = append(out, e)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type entryRequest struct {
	MovieID  int            `json:"movie_id"`
	Status   *models.Status `json:"status"`
	Favorite *bool          `json:"favorite"`
	Comments *string        `json:"comments"`
	Rating   *int           `json:"rating"`
}

func (req entryRequest) validate() map[string]string {
	fields := map[string]string{}
	if req.Status != nil && !req.Status.IsStorable() {
		fields["status"] = "invalid status"
	}
	if req.Rating != nil && (*req.Rating < models.MinRating || *req.Rating > models.MaxRating) {
		fields["rating"] = "must be between 1 and 5"
	}
	if req.Comments != nil && len(*req.Comments) > models.MaxCommentLength {
		fields["comments"] = "too long"
	}
	return fields
}

func (req entryRequest) apply(e *models.WatchlistEntry) {
	if req.Status != nil {
		e.Status = *req.Status
	}
	if req.Favorite != nil {
		e.Favorite = *req.Favorite
	}
	if req.Comments != nil {
		e.Comment = req.Comments
	}
	e.Rating = req.Rating
}

func decodeEntryRequest(w http.ResponseWriter, r *http.Request) (entryRequest, bool) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return req, false
	}
	if fields := req.validate(); len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", fields)
		return req, false
	}
	return req, true
}

func (f *FakeBackend) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEntryRequest(w, r)
	if !ok {
		return
	}
	user := f.currentUser(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.MovieID == req.MovieID && (e.UserID == 0 || e.UserID == user.ID) {
			writeError(w, http.StatusConflict, "Movie already in watchlist", nil)
			return
		}
	}
	f.nextID++
	e := models.WatchlistEntry{ID: f.nextID, UserID: user.ID, MovieID: req.MovieID, Status: models.StatusPlanToWatch}
	req.apply(&e)
	f.entries[e.ID] = e
	writeJSON(w, http.StatusCreated, e)
}

func (f *FakeBackend) update(w http.ResponseWriter, r *http.Request, req entryRequest) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Watchlist item %d not found", id), nil)
		return
	}
	req.apply(&e)
	f.entries[id] = e
	writeJSON(w, http.StatusOK, e)
}

// handlePatch updates the one field named by the route and keeps the others.
func (f *FakeBackend) handlePatch(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeEntryRequest(w, r)
		if !ok {
			return
		}
		id, _ := strconv.Atoi(chi.URLParam(r, "id"))
		f.mu.Lock()
		current, exists := f.entries[id]
		f.mu.Unlock()
		if exists {
			keep := entryRequest{Comments: current.Comment, Rating: current.Rating}
			switch field {
			case "status":
				keep.Status = req.Status
			case "favorite":
				keep.Favorite = req.Favorite
			case "rating":
				keep.Rating = req.Rating
			}
			req = keep
		}
		f.update(w, r, req)
	}
}

func (f *FakeBackend) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEntryRequest(w, r)
	if !ok {
		return
	}
	if req.Comments != nil && *req.Comments == "" {
		req.Comments = nil
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	if e, exists := f.entries[id]; exists {
		e.Comment = nil
		f.entries[id] = e
	}
	f.mu.Unlock()
	f.update(w, r, req)
}

func (f *FakeBackend) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[id]; !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Watchlist item %d not found", id), nil)
		return
	}
	delete(f.entries, id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string, fields map[string]string) {
	writeJSON(w, code, map[string]any{"message": message, "status_code": code, "fields": fields})
}
