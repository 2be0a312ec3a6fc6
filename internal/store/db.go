// Package store is the SQLite analytics sink: conversation events and
// session history for one profile.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the profile's spark.db connection.
type DB struct {
	*sql.DB
}

// Open creates a SQLite connection with WAL mode and a busy timeout, so the
// chat client and sparkctl can use the same file at once.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}
