// Package storage persists compliance history, violation snapshots, hook
// calibration counters and per-session violations in .thymus/thymus.db.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"thymus/internal/errors"
	"thymus/internal/paths"
)

// DB is the project database with transaction helpers
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates .thymus/thymus.db under repoRoot.
func Open(repoRoot string, logger *slog.Logger) (*DB, error) {
	return OpenPath(paths.DatabasePath(repoRoot), logger)
}

// OpenPath opens or creates the database at dbPath, creating the schema
// for a new file and migrating an existing one.
func OpenPath(dbPath string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, storageError("create state directory", err)
	}
	exists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageError("open database", err)
	}
	// One writer; the hook and a scan may race on the same file.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, storageError("set pragma", err)
		}
	}

	db := &DB{conn: conn, logger: logger, dbPath: dbPath}

	if !exists {
		logger.Debug("creating database", "path", dbPath)
		err = db.initializeSchema()
	} else {
		err = db.runMigrations()
	}
	if err != nil {
		_ = conn.Close()
		return nil, storageError("prepare schema", err)
	}
	return db, nil
}

func storageError(op string, err error) error {
	return errors.NewThymusError(errors.StorageFailure, op, err, errors.GetSuggestedFixes(errors.StorageFailure))
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.dbPath
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// WithTx runs fn in a transaction, rolling back when fn fails or panics.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("rollback failed", "error", err, "rollback_error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (db *DB) exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

func (db *DB) query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

func (db *DB) queryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
