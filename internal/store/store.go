// Package store is the data access layer over the local sqlite cache.
package store

import "database/sql"

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the database connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}
