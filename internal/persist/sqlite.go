package persist

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists named snapshot blobs to a single-writer SQLite database.
// Grounded on the teacher's internal/store/sqlite.go Open() (WAL mode,
// busy_timeout, single connection), reduced from its multi-table schema
// to one table since a snapshot is a single opaque blob, not rows to
// query.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dbPath and ensures the
// snapshots table exists.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("persist: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite handles one writer at a time

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	name       TEXT PRIMARY KEY,
	blob       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);`
	_, err := db.Exec(schema)
	return err
}

// Save writes blob under name, replacing any prior snapshot of the same
// name.
func (s *Store) Save(name string, blob []byte, nowMs int64) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshots (name, blob, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, created_at = excluded.created_at`,
		name, blob, nowMs,
	)
	if err != nil {
		return fmt.Errorf("persist: save snapshot %q: %w", name, err)
	}
	return nil
}

// Load reads the blob stored under name. ok is false if no snapshot by
// that name exists.
func (s *Store) Load(name string) (blob []byte, ok bool, err error) {
	row := s.db.QueryRow(`SELECT blob FROM snapshots WHERE name = ?`, name)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("persist: load snapshot %q: %w", name, err)
	}
	return blob, true, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
