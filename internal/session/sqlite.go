package session

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"

	// sqlite driver for the session database.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore persists contexts in a SQLite file so a named CLI session
// survives between invocations.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the session database at path and
// applies pending migrations. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate runs all pending schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Get returns the context for id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Context, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot, value FROM session_slots WHERE session_id = ?`, id)
	if err != nil {
		return Context{}, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var c Context
	for rows.Next() {
		var slot, value string
		if err := rows.Scan(&slot, &value); err != nil {
			return Context{}, fmt.Errorf("failed to scan session %s: %w", id, err)
		}
		if !ValidSlot(Slot(slot)) {
			continue
		}
		c, _ = c.With(Slot(slot), value)
	}
	if err := rows.Err(); err != nil {
		return Context{}, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return c, nil
}

// SetSlot upserts one slot.
func (s *SQLiteStore) SetSlot(ctx context.Context, id string, slot Slot, value string) error {
	if !ValidSlot(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	if err := upsertSlot(ctx, s.db, id, slot, value); err != nil {
		return fmt.Errorf("failed to write %s for session %s: %w", slot, id, err)
	}
	return nil
}

// Set overwrites all four slots in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, id string, c Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, slot := range Slots {
		if err := upsertSlot(ctx, tx, id, slot, c.Get(slot)); err != nil {
			return fmt.Errorf("failed to write %s for session %s: %w", slot, id, err)
		}
	}
	return tx.Commit()
}

// Clear deletes every slot for id.
func (s *SQLiteStore) Clear(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_slots WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", id, err)
	}
	return nil
}

// List returns the stored session ids in sorted order.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM session_slots ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertSlot(ctx context.Context, db execer, id string, slot Slot, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO session_slots (session_id, slot, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		id, string(slot), value, time.Now().UTC(),
	)
	return err
}
