package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"thymus/internal/rules"
)

// HistoryRecord is one stored compliance measurement.
type HistoryRecord struct {
	ID           int64
	RunID        string
	RecordedAt   time.Time
	Commit       string
	FilesChecked int
	Errors       int
	Warnings     int
	Info         int
	Compliance   float64
	ByRule       map[string]int
	// Snapshot is the uncompressed JSON violation list; only set by Append
	// callers and by HistoryRepository.Snapshot.
	Snapshot []byte
}

// HistoryRepository reads and writes the history table
type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append stores rec and drops the oldest rows beyond maxEntries. It returns
// the new row id.
func (r *HistoryRepository) Append(rec *HistoryRecord, maxEntries int) (int64, error) {
	byRule, err := json.Marshal(rec.ByRule)
	if err != nil {
		return 0, err
	}
	if rec.ByRule == nil {
		byRule = []byte("{}")
	}

	var id int64
	err = r.db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO history (
				run_id, recorded_at, commit_sha, files_checked,
				errors, warnings, info, compliance, by_rule_json, snapshot
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.RunID,
			rec.RecordedAt.UTC().Format(time.RFC3339Nano),
			rec.Commit,
			rec.FilesChecked,
			rec.Errors,
			rec.Warnings,
			rec.Info,
			rec.Compliance,
			string(byRule),
			compressSnapshot(rec.Snapshot),
		)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if maxEntries > 0 {
			_, err = tx.Exec(`
				DELETE FROM history WHERE id NOT IN (
					SELECT id FROM history ORDER BY id DESC LIMIT ?
				)
			`, maxEntries)
		}
		return err
	})
	return id, err
}

// List returns the newest limit records in chronological order. limit <= 0
// returns everything.
func (r *HistoryRepository) List(limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.query(`
		SELECT id, run_id, recorded_at, commit_sha, files_checked,
			errors, warnings, info, compliance, by_rule_json
		FROM (SELECT * FROM history ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var recordedAt, byRule string
		if err := rows.Scan(&rec.ID, &rec.RunID, &recordedAt, &rec.Commit, &rec.FilesChecked,
			&rec.Errors, &rec.Warnings, &rec.Info, &rec.Compliance, &byRule); err != nil {
			return nil, err
		}
		rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		if err := json.Unmarshal([]byte(byRule), &rec.ByRule); err != nil {
			return nil, fmt.Errorf("history %d: decode by_rule: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Snapshot returns the decompressed violation snapshot of one record, or
// nil when the record has none.
func (r *HistoryRepository) Snapshot(id int64) ([]byte, error) {
	var blob []byte
	err := r.db.queryRow("SELECT snapshot FROM history WHERE id = ?", id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history record %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return decompressSnapshot(blob)
}

// Count returns the number of stored records.
func (r *HistoryRepository) Count() (int, error) {
	var n int
	err := r.db.queryRow("SELECT COUNT(*) FROM history").Scan(&n)
	return n, err
}

// CalibrationCounts tracks how often a rule's violation was fixed versus
// left in place on the next edit of the same file.
type CalibrationCounts struct {
	RuleID    string    `json:"ruleId"`
	Fixed     int       `json:"fixed"`
	Ignored   int       `json:"ignored"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CalibrationRepository reads and writes the calibration table
type CalibrationRepository struct {
	db *DB
}

func NewCalibrationRepository(db *DB) *CalibrationRepository {
	return &CalibrationRepository{db: db}
}

// Add increments a rule's counters.
func (r *CalibrationRepository) Add(ruleID string, fixed, ignored int) error {
	if fixed == 0 && ignored == 0 {
		return nil
	}
	_, err := r.db.exec(`
		INSERT INTO calibration (rule_id, fixed, ignored, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET
			fixed = fixed + excluded.fixed,
			ignored = ignored + excluded.ignored,
			updated_at = excluded.updated_at
	`, ruleID, fixed, ignored, time.Now().UTC().Format(time.RFC3339))
	return err
}

// All returns every rule's counters ordered by rule id.
func (r *CalibrationRepository) All() ([]CalibrationCounts, error) {
	rows, err := r.db.query("SELECT rule_id, fixed, ignored, updated_at FROM calibration ORDER BY rule_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CalibrationCounts
	for rows.Next() {
		var c CalibrationCounts
		var updated string
		if err := rows.Scan(&c.RuleID, &c.Fixed, &c.Ignored, &updated); err != nil {
			return nil, err
		}
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SessionRepository keeps the latest violations per file for a session
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Replace stores vs as the current violations of file in session and returns
// the set it replaced.
func (r *SessionRepository) Replace(sessionID, file string, vs []rules.Violation) ([]rules.Violation, error) {
	var previous []rules.Violation
	err := r.db.WithTx(func(tx *sql.Tx) error {
		var err error
		previous, err = scanViolations(tx.Query(`
			SELECT rule_id, severity, message, file, line, import_target, package_name
			FROM session_violations WHERE session_id = ? AND file = ? ORDER BY seq
		`, sessionID, file))
		if err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM session_violations WHERE session_id = ? AND file = ?", sessionID, file); err != nil {
			return err
		}
		now := time.Now().UTC().Format(time.RFC3339)
		if _, err := tx.Exec(`
			INSERT INTO session_files (session_id, file, edits, last_edit_at) VALUES (?, ?, 1, ?)
			ON CONFLICT(session_id, file) DO UPDATE SET
				edits = edits + 1,
				last_edit_at = excluded.last_edit_at
		`, sessionID, file, now); err != nil {
			return fmt.Errorf("record session file: %w", err)
		}
		for i, v := range vs {
			_, err := tx.Exec(`
				INSERT INTO session_violations (
					session_id, file, seq, rule_id, severity, message,
					line, import_target, package_name, recorded_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, sessionID, file, i, v.RuleID, string(v.Severity), v.Message,
				v.Line, v.ImportTarget, v.PackageName, now)
			if err != nil {
				return fmt.Errorf("insert session violation: %w", err)
			}
		}
		return nil
	})
	return previous, err
}

// List returns every current violation in session, ordered by file.
func (r *SessionRepository) List(sessionID string) ([]rules.Violation, error) {
	return scanViolations(r.db.query(`
		SELECT rule_id, severity, message, file, line, import_target, package_name
		FROM session_violations WHERE session_id = ? ORDER BY file, seq
	`, sessionID))
}

// Files returns the files evaluated in session, sorted.
func (r *SessionRepository) Files(sessionID string) ([]string, error) {
	rows, err := r.db.query("SELECT file FROM session_files WHERE session_id = ? ORDER BY file", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Clear removes everything recorded for session.
func (r *SessionRepository) Clear(sessionID string) error {
	return r.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM session_violations WHERE session_id = ?", sessionID); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM session_files WHERE session_id = ?", sessionID)
		return err
	})
}

func scanViolations(rows *sql.Rows, err error) ([]rules.Violation, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rules.Violation
	for rows.Next() {
		var v rules.Violation
		var severity string
		if err := rows.Scan(&v.RuleID, &severity, &v.Message, &v.File, &v.Line, &v.ImportTarget, &v.PackageName); err != nil {
			return nil, err
		}
		v.Severity = rules.Severity(severity)
		out = append(out, v)
	}
	return out, rows.Err()
}
