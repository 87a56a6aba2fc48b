// Package store persists submitted credential templates in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/jsonschema"
)

// Migration version constants
const (
	MigrationV1 = 1 // templates table
	MigrationV2 = 2 // title index for listing
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Template is one stored schema.
type Template struct {
	ID        string
	Title     string
	Schema    *jsonschema.Document
	CreatedAt time.Time
}

// Summary is a template without its schema, as returned by List.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New opens or creates the database at dbPath and migrates it. ":memory:"
// gives a private in-memory database.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	s.logger.Debug("database schema version", "current", current, "target", CurrentSchemaVersion)

	migrations := []struct {
		version     int
		description string
		sql         string
	}{
		{MigrationV1, "Create templates table", `
			CREATE TABLE IF NOT EXISTS templates (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				schema TEXT NOT NULL,
				created_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_templates_created ON templates(created_at DESC);
		`},
		{MigrationV2, "Add title index", `
			CREATE INDEX IF NOT EXISTS idx_templates_title ON templates(title);
		`},
	}
	for _, m := range migrations {
		if current >= m.version {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.version, m.description); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		s.logger.Info("applied migration", "version", m.version, "description", m.description)
	}
	return nil
}

// Save stores doc under a new ID.
func (s *Store) Save(ctx context.Context, doc *jsonschema.Document) (*Template, error) {
	raw, err := jsonschema.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	t := &Template{
		ID:        uuid.NewString(),
		Title:     doc.Title,
		Schema:    doc,
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO templates (id, title, schema, created_at) VALUES (?, ?, ?, ?)",
		t.ID, t.Title, string(raw), t.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, err
	}
	s.logger.Info("template saved", "id", t.ID, "title", t.Title)
	return t, nil
}

// Get retrieves a template by ID. A missing template matches
// vcschema.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Template, error) {
	var (
		t       Template
		raw     string
		created string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, schema, created_at FROM templates WHERE id = ?", id,
	).Scan(&t.ID, &t.Title, &raw, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, vcschema.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.Unmarshal([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("template %s: stored schema: %w", id, err)
	}
	t.Schema = doc
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns template summaries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at FROM templates ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			created string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &created); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a template. A missing template matches vcschema.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("template %s: %w", id, vcschema.ErrNotFound)
	}
	s.logger.Info("template deleted", "id", id)
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid created_at %q: %w", s, err)
	}
	return t, nil
}
