// Package store persists scan results to SQLite so the CLI and MCP tools can
// answer topology queries without rescanning, and so incremental scans can
// skip unchanged files.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/routelab/routemap/internal/topology"
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both contexts.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection holding scanned route topologies.
type Store struct {
	db     *sql.DB
	q      Querier // active querier: db or tx
	dbPath string
}

// cacheDir returns the default cache directory for databases.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".cache", "routemap")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	return dir, nil
}

// Open opens or creates the SQLite database for the given project.
func Open(project string) (*Store, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return OpenPath(filepath.Join(dir, project+".db"))
}

// OpenPath opens a SQLite database at the given path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, dbPath: dbPath}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory SQLite database (for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	s := &Store{db: db, dbPath: ":memory:"}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction. The
// callback receives a transaction-scoped Store; the receiver's q field is
// never mutated, so concurrent read-only queries are unaffected.
func (s *Store) WithTransaction(fn func(txStore *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		scanned_at TEXT NOT NULL,
		root_path TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS file_hashes (
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		rel_path TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (project, rel_path)
	);

	CREATE TABLE IF NOT EXISTS groups (
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		identity TEXT NOT NULL,
		name TEXT NOT NULL,
		raw_prefix TEXT DEFAULT '',
		parent TEXT DEFAULT '',
		depth INTEGER DEFAULT 0,
		full_prefix TEXT DEFAULT '',
		file_path TEXT DEFAULT '',
		line INTEGER DEFAULT 0,
		PRIMARY KEY (project, identity)
	);

	CREATE TABLE IF NOT EXISTS routes (
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		identity TEXT NOT NULL,
		name TEXT NOT NULL,
		methods TEXT DEFAULT '[]',
		group_identity TEXT DEFAULT '',
		effective_path TEXT DEFAULT '',
		normalized_path TEXT DEFAULT '',
		file_path TEXT DEFAULT '',
		line INTEGER DEFAULT 0,
		PRIMARY KEY (project, identity)
	);

	CREATE INDEX IF NOT EXISTS idx_routes_norm ON routes(project, normalized_path);
	CREATE INDEX IF NOT EXISTS idx_routes_group ON routes(project, group_identity);

	CREATE TABLE IF NOT EXISTS diagnostics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		detail TEXT DEFAULT '{}',
		file_path TEXT DEFAULT '',
		line INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_diagnostics_kind ON diagnostics(project, kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// identityKey formats a topology.Identity for storage. SQLite INTEGER is
// signed 64-bit, so the unsigned identity travels as fixed-width hex text.
func identityKey(id topology.Identity) string {
	if id == topology.None {
		return ""
	}
	return fmt.Sprintf("%016x", uint64(id))
}

// parseIdentity is the inverse of identityKey.
func parseIdentity(key string) topology.Identity {
	if key == "" {
		return topology.None
	}
	v, err := strconv.ParseUint(key, 16, 64)
	if err != nil {
		return topology.None
	}
	return topology.Identity(v)
}

// Now returns the current time in ISO 8601 format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
