package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, create := range []func(*sql.Tx) error{
			createSchemaVersionTable,
			createHistoryTable,
			createCalibrationTable,
			createSessionViolationsTable,
		} {
			if err := create(tx); err != nil {
				return err
			}
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}
		db.logger.Debug("database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations brings an existing database up to currentSchemaVersion.
// A file without a schema_version row (for example one left empty by an
// interrupted first run) is initialized from scratch.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		return db.initializeSchema()
	case version > currentSchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	return nil
}

func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.queryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.queryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// history holds one row per recorded scan or session, oldest first.
// snapshot is the zstd-compressed JSON violation list.
func createHistoryTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			commit_sha TEXT NOT NULL,
			files_checked INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			info INTEGER NOT NULL,
			compliance REAL NOT NULL,
			by_rule_json TEXT NOT NULL,
			snapshot BLOB
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_history_run_id ON history(run_id)")
	return err
}

func createCalibrationTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS calibration (
			rule_id TEXT PRIMARY KEY,
			fixed INTEGER NOT NULL DEFAULT 0,
			ignored INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create calibration table: %w", err)
	}
	return nil
}

// session_violations keeps the latest violation set per (session, file).
func createSessionViolationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS session_violations (
			session_id TEXT NOT NULL,
			file TEXT NOT NULL,
			seq INTEGER NOT NULL,
			rule_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			line INTEGER NOT NULL DEFAULT 0,
			import_target TEXT NOT NULL DEFAULT '',
			package_name TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, file, seq)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_violations table: %w", err)
	}

	// session_files records every file evaluated in a session, so a session
	// whose edits were all clean can be told apart from one with no edits.
	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS session_files (
			session_id TEXT NOT NULL,
			file TEXT NOT NULL,
			edits INTEGER NOT NULL DEFAULT 0,
			last_edit_at TEXT NOT NULL,
			PRIMARY KEY (session_id, file)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_files table: %w", err)
	}
	return nil
}
