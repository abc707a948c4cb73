// Package sqlite implements the row store contract on top of SQLite.
//
// It is the reference backend for the generic select/insert/update/delete
// endpoint: the same DB value can be handed to the Translator as an
// in-process store, or served over HTTP by the rowstore handler.
//
// Like the remote store it stands in for, it offers no transaction spanning
// more than one request. A single multi-row insert is atomic; nothing else is.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain is
// needed. Use ":memory:" for tests.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and executes rowstore requests.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and creates the tables if needed.
//
// dbPath examples:
//   - "data/rowstore.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives and dies with its connection; a pool of
	// several would each see an empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates every table in the schema. CREATE ... IF NOT EXISTS keeps it
// safe to run on each start.
//
// There are deliberately no foreign keys: the store does not cascade, callers
// sequence dependent deletes themselves.
func (db *DB) migrate() error {
	for _, name := range tableOrder {
		t := schema[name]
		defs := make([]string, 0, len(t.columns))
		for _, c := range t.columns {
			defs = append(defs, quote(c.name)+" "+c.ddl)
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quote(name), strings.Join(defs, ",\n\t"))
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("creating %s table: %w", name, err)
		}
		for _, idx := range t.indexes {
			if _, err := db.conn.Exec(idx); err != nil {
				return fmt.Errorf("indexing %s: %w", name, err)
			}
		}
	}
	return nil
}

// quote makes an identifier safe to splice into SQL. Only names from the
// schema ever reach it.
func quote(ident string) string {
	return `"` + ident + `"`
}
