package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	aaerrors "github.com/randalmurphal/aa/internal/errors"
	"github.com/randalmurphal/aa/internal/ident"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const migrationPrefix = "counters_"

// SQLiteStore keeps counters in a SQLite database. The database is opened on
// first use so that Exists can be asked without creating the file.
type SQLiteStore struct {
	path string
	mu   sync.Mutex
	db   *sql.DB
}

// NewSQLiteStore creates a store backed by the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Exists reports whether the database file is present.
func (s *SQLiteStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Close closes the database connection if one was opened.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable foreign keys, WAL mode, and busy timeout for concurrent access
	if _, err := db.ExecContext(ctx, `
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return db, nil
}

// Load reads every project's counters.
func (s *SQLiteStore) Load(ctx context.Context) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil && !s.Exists() {
		return NewData(), nil
	}
	db, err := s.open(ctx)
	if err != nil {
		return nil, aaerrors.ErrCacheInvalid(s.path, "cannot open database").WithCause(err)
	}

	d := NewData()
	rows, err := db.QueryContext(ctx, "SELECT code, last_root FROM projects")
	if err != nil {
		return nil, aaerrors.ErrCacheInvalid(s.path, "cannot read projects").WithCause(err)
	}
	for rows.Next() {
		var code string
		var lastRoot int
		if err := rows.Scan(&code, &lastRoot); err != nil {
			_ = rows.Close()
			return nil, aaerrors.ErrCacheInvalid(s.path, "cannot read projects").WithCause(err)
		}
		d.Project(code).LastRoot = lastRoot
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, aaerrors.ErrCacheInvalid(s.path, "cannot read projects").WithCause(err)
	}
	_ = rows.Close()

	rows, err = db.QueryContext(ctx, "SELECT code, parent_key, last FROM subtask_counters")
	if err != nil {
		return nil, aaerrors.ErrCacheInvalid(s.path, "cannot read subtask counters").WithCause(err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var code, key string
		var last int
		if err := rows.Scan(&code, &key, &last); err != nil {
			return nil, aaerrors.ErrCacheInvalid(s.path, "cannot read subtask counters").WithCause(err)
		}
		d.Project(code).Subtasks[key] = last
	}
	if err := rows.Err(); err != nil {
		return nil, aaerrors.ErrCacheInvalid(s.path, "cannot read subtask counters").WithCause(err)
	}

	if err := d.Validate(); err != nil {
		return nil, aaerrors.ErrCacheInvalid(s.path, err.Error()).WithCause(err)
	}
	return d, nil
}

// Save replaces all stored counters in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, d *Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.normalize()
	db, err := s.open(ctx)
	if err != nil {
		return aaerrors.ErrCacheWrite(s.path).WithCause(err)
	}
	if err := replaceAll(ctx, db, d); err != nil {
		return aaerrors.ErrCacheWrite(s.path).WithCause(err)
	}
	return nil
}

func replaceAll(ctx context.Context, db *sql.DB, d *Data) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM subtask_counters"); err != nil {
		return fmt.Errorf("clear subtask counters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	for _, code := range d.Codes() {
		c := d.Projects[code]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO projects (code, last_root, updated_at) VALUES (?, ?, datetime('now'))",
			code, c.LastRoot); err != nil {
			return fmt.Errorf("insert project %s: %w", code, err)
		}
		for _, key := range sortedKeys(c) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO subtask_counters (code, parent_key, last) VALUES (?, ?, ?)",
				code, key, c.Subtasks[key]); err != nil {
				return fmt.Errorf("insert subtask counter %s-%s: %w", code, key, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sortedKeys(c *ident.Counters) []string {
	keys := make([]string, 0, len(c.Subtasks))
	for k := range c.Subtasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// migrate applies the embedded schema files that have not run yet.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, "SELECT version FROM _migrations")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	_ = rows.Close()

	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), migrationPrefix) && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := migrationVersion(name)
		if applied[version] {
			continue
		}
		content, err := schemaFS.ReadFile("schema/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO _migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// migrationVersion turns "counters_001.sql" into 1.
func migrationVersion(name string) int {
	s := strings.TrimSuffix(strings.TrimPrefix(name, migrationPrefix), ".sql")
	var v int
	_, _ = fmt.Sscanf(s, "%d", &v)
	return v
}
