// This file caches movie metadata locally so records sourced from the
// watchlist can be rendered without the movie being in the catalog window.

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/movie-tracker/movietracker-web/internal/models"
)

// PutMovie inserts or replaces a cached movie.
func (s *Store) PutMovie(m models.Movie) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode movie %d: %w", m.ID, err)
	}
	query := `
		INSERT INTO movies (id, title, year, payload, cached_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			payload = excluded.payload,
			cached_at = excluded.cached_at`
	_, err = s.db.Exec(query, m.ID, m.Title, m.Year, string(payload), time.Now().UTC())
	return err
}

// PutMovies caches a batch of movies in one transaction.
func (s *Store) PutMovies(movies []models.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO movies (id, title, year, payload, cached_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			payload = excluded.payload,
			cached_at = excluded.cached_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range movies {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode movie %d: %w", m.ID, err)
		}
		if _, err := stmt.Exec(m.ID, m.Title, m.Year, string(payload), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMovie returns a cached movie. The boolean is false when it is not cached.
func (s *Store) GetMovie(id int) (models.Movie, bool, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM movies WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Movie{}, false, nil
	}
	if err != nil {
		return models.Movie{}, false, err
	}
	var m models.Movie
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return models.Movie{}, false, fmt.Errorf("corrupt cache entry for movie %d: %w", id, err)
	}
	return m, true, nil
}

// CountMovies returns the number of cached movies.
func (s *Store) CountMovies() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM movies").Scan(&n)
	return n, err
}

// PruneMovies deletes movies cached before cutoff and returns how many went.
func (s *Store) PruneMovies(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM movies WHERE cached_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
