// Package ledger provides the SQLite-backed checkpoint store: durable
// sessions, append-only message history, and the interrupt ledger. It is the
// only shared mutable resource in the system; interrupt status transitions
// are compare-and-swap so a decision can never be double-applied.
package ledger

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"concierge/pkg/logx"
)

// Store wraps the SQLite database holding sessions, history, and interrupts.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the checkpoint store at the given path.
func Open(dbPath string) (*Store, error) {
	// WAL mode and busy timeout: multiple readers, one writer, no SQLITE_BUSY
	// surprises under the per-session locks above us.
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Pragmas apply per connection; with the pool pinned to one connection
	// these hold for the life of the store.
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	logger := logx.NewLogger("ledger")
	logger.Info("checkpoint store opened: %s", dbPath)

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
