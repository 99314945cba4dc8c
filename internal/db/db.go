// Package db persists layout state in SQLite: per-video layout configs,
// OCR boxes, the cropped-frame cache index and classifier model records.
// Schema changes ship as embedded golang-migrate files; the update
// orchestrator in this package is the only writer of layout_configs.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// OpenDB opens a SQLite database and applies the session pragmas without
// touching the schema. The migrate CLI uses this so migrations stay in
// charge of the schema.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := applyPragmas(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn}, nil
}

// NewDB opens the database and brings the schema up to date with the
// embedded migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewDBWithMigrationCheck opens the database. With autoMigrate true the
// schema is brought up to date; otherwise outstanding migrations are
// reported as an error so the operator can run them deliberately.
func NewDBWithMigrationCheck(path string, autoMigrate bool) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if autoMigrate {
		if err := db.MigrateUp(MigrationsFS()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return db, nil
	}
	if _, err := db.CheckAndPromptMigrations(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// applyPragmas configures the connection for concurrent readers with a
// single writer: WAL journaling, a generous busy timeout, NORMAL fsync and
// in-memory temp storage.
func applyPragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}
