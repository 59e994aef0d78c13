// Package database opens the SQLite store holding audit logs, service events
// and backup runs.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// The poller and the backup scheduler write concurrently.
var pragmas = url.Values{
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
	"_journal_mode": {"WAL"},
}

// DB wraps a sql.DB connection with the path it was opened from.
type DB struct {
	*sql.DB
	path string
}

// New opens the database at path, creating its parent directory.
func New(path string) (*DB, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?"+pragmas.Encode())
	if err != nil {
		return nil, err
	}
	if path == memoryPath {
		// Every connection would get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return &DB{DB: conn, path: path}, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

// Migrate runs all database migrations.
func (db *DB) Migrate() error {
	return runMigrations(db.DB)
}
