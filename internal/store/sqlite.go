// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Opens the database with WAL enabled and creates the schema on first use

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// tsLayout sorts lexically in time order; stored times are always UTC.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS app_data (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS command_log (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			platform TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			ok INTEGER NOT NULL,
			ts TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_command_log_channel_ts
			ON command_log(channel_id, ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetDocument returns the named document or ErrNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, name string) (*Document, error) {
	var (
		value   string
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM app_data WHERE name = ?`, name,
	).Scan(&value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", name, err)
	}

	ts, err := time.Parse(tsLayout, updated)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at of %s: %w", name, err)
	}
	return &Document{Name: name, Value: []byte(value), UpdatedAt: ts}, nil
}

// PutDocument inserts or replaces the named document.
func (s *SQLiteStore) PutDocument(ctx context.Context, name string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_data (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, name, string(value), time.Now().UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("saving document %s: %w", name, err)
	}
	s.logger.Debug("document saved", "name", name, "bytes", len(value))
	return nil
}

// DeleteDocument removes the named document. Missing documents are not an
// error.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_data WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting document %s: %w", name, err)
	}
	return nil
}

// ListDocuments returns document names in sorted order.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM app_data ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning document name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AppendCommand records a command invocation. ID and Timestamp are filled in
// when empty.
func (s *SQLiteStore) AppendCommand(ctx context.Context, rec *CommandRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_log (id, path, platform, channel_id, sender_id, ok, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Path, rec.Platform, rec.ChannelID, rec.SenderID, rec.OK,
		rec.Timestamp.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("inserting command record: %w", err)
	}
	return nil
}

// ListCommands returns the most recent records first.
func (s *SQLiteStore) ListCommands(ctx context.Context, filter CommandFilter) ([]*CommandRecord, error) {
	query := `SELECT id, path, platform, channel_id, sender_id, ok, ts FROM command_log WHERE 1=1`
	var args []any
	if filter.ChannelID != "" {
		query += ` AND channel_id = ?`
		args = append(args, filter.ChannelID)
	}
	if !filter.Since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, filter.Since.UTC().Format(tsLayout))
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	var out []*CommandRecord
	for rows.Next() {
		var (
			rec CommandRecord
			ts  string
		)
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Platform, &rec.ChannelID, &rec.SenderID, &rec.OK, &ts); err != nil {
			return nil, fmt.Errorf("scanning command record: %w", err)
		}
		if rec.Timestamp, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("parsing command timestamp: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
