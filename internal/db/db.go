// Package db provides SQLite persistence for the courier store daemon.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle used by the repositories.
type DB struct {
	*sql.DB
}

// Open opens (and creates if needed) the store database at path and ensures
// the schema exists.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path)

	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to connect to store database: %w", err)
	}

	db := &DB{DB: handle}
	if err := db.ensureSchema(ctx); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			content TEXT NOT NULL,
			is_read INTEGER NOT NULL DEFAULT 0,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			principal TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			principal TEXT PRIMARY KEY,
			role TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_pair_idx ON messages(sender, receiver, timestamp)`,
		`CREATE INDEX IF NOT EXISTS messages_unread_idx ON messages(receiver, sender, is_read)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize store schema: %w", err)
		}
	}
	return nil
}

// Transaction runs fn inside a transaction, committing on nil and rolling
// back otherwise.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
