// Package repo provides SQLite-backed persistence. modernc.org/sqlite is a
// pure-Go driver, so deployments need no cgo toolchain.
package repo

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS precedents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id TEXT NOT NULL UNIQUE,
	claim_type TEXT NOT NULL,
	state TEXT NOT NULL,
	claim_amount REAL NOT NULL,
	status TEXT NOT NULL,
	decision_reason TEXT NOT NULL DEFAULT '',
	key_factors TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_precedents_claim_type ON precedents(claim_type);
CREATE INDEX IF NOT EXISTS idx_precedents_status ON precedents(status);
`

// DB wraps a SQLite connection with the schema applied.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the database at path. WAL mode keeps reads cheap
// while the API writes precedents.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("repo: create data dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("repo: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("repo: ping: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("repo: init schema: %w", err)
	}
	return db, nil
}

// OpenInMemory creates an in-memory database for tests.
func OpenInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("repo: open in-memory: %w", err)
	}
	db := &DB{conn: conn, path: ":memory:"}
	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("repo: init schema: %w", err)
	}
	return db, nil
}

func (db *DB) initSchema() error {
	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
