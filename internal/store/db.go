package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"credit-feature-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run ID is unknown
var ErrRunNotFound = errors.New("run not found")

// Store keeps extraction runs, their failures, stage logs and feature rows in SQLite
type Store struct {
	db *sql.DB
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT,
		failure_policy TEXT,
		status TEXT,
		columns TEXT,
		record_count INTEGER DEFAULT 0,
		row_count INTEGER DEFAULT 0,
		failure_count INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		record_index INTEGER,
		field TEXT,
		path TEXT,
		reason TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		level TEXT,
		message TEXT,
		details TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS feature_rows (
		run_id TEXT,
		position INTEGER,
		row_json TEXT,
		PRIMARY KEY (run_id, position)
	);`,
}

// Open connects to the SQLite database at dbPath and creates missing tables
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun stores a new run
func (s *Store) CreateRun(run model.RunRecord) error {
	columns, err := json.Marshal(run.Columns)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(`INSERT INTO runs (id, source, failure_policy, status, columns, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, string(run.FailurePolicy), run.Status, string(columns), now, now)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateRunStatus updates run status
func (s *Store) UpdateRunStatus(runID, status string) error {
	res, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res, runID)
}

// CompleteRun records the final status and counts of a run
func (s *Store) CompleteRun(runID, status string, result model.ExtractionResult) error {
	res, err := s.db.Exec(`UPDATE runs SET status = ?, record_count = ?, row_count = ?, failure_count = ?, updated_at = ? WHERE id = ?`,
		status, result.Records, len(result.Rows), len(result.Failures), time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res, runID)
}

// SaveRunError records a record failure for a run
func (s *Store) SaveRunError(runID string, failure model.RecordFailure) error {
	_, err := s.db.Exec(`INSERT INTO run_errors (run_id, record_index, field, path, reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, failure.Index, failure.Field, failure.Path, failure.Reason, time.Now().UTC())
	return err
}

// SaveRunLog records a stage log line for a run
func (s *Store) SaveRunLog(runID, stage, level, message string, details map[string]interface{}) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		if detailsJSON, err = json.Marshal(details); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO run_logs (run_id, stage, level, message, details, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, level, message, string(detailsJSON), time.Now().UTC())
	return err
}

// SaveFeatureRows replaces the stored rows of a run in one transaction
func (s *Store) SaveFeatureRows(runID string, rows []model.FeatureRow) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM feature_rows WHERE run_id = ?`, runID); err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`INSERT INTO feature_rows (run_id, position, row_json) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.Exec(runID, i, string(data)); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ListRuns returns all runs, newest first
func (s *Store) ListRuns() ([]model.RunRecord, error) {
	rows, err := s.db.Query(`SELECT id, source, failure_policy, status, columns, record_count, row_count, failure_count, created_at, updated_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run
func (s *Store) GetRun(runID string) (model.RunRecord, error) {
	row := s.db.QueryRow(`SELECT id, source, failure_policy, status, columns, record_count, row_count, failure_count, created_at, updated_at
		FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// GetRunErrors returns the record failures of a run in record order
func (s *Store) GetRunErrors(runID string) ([]model.RecordFailure, error) {
	rows, err := s.db.Query(`SELECT record_index, field, path, reason FROM run_errors WHERE run_id = ? ORDER BY record_index, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	failures := []model.RecordFailure{}
	for rows.Next() {
		var f model.RecordFailure
		if err := rows.Scan(&f.Index, &f.Field, &f.Path, &f.Reason); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// GetRunLogs returns up to limit stage logs of a run, oldest first. limit <= 0 means all.
func (s *Store) GetRunLogs(runID string, limit int) ([]model.RunLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT stage, level, message, details, created_at FROM run_logs WHERE run_id = ? ORDER BY id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.RunLog{}
	for rows.Next() {
		var l model.RunLog
		var details sql.NullString
		if err := rows.Scan(&l.Stage, &l.Level, &l.Message, &details, &l.CreatedAt); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &l.Details); err != nil {
				return nil, fmt.Errorf("decode log details: %w", err)
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetFeatureRows returns up to limit stored rows of a run in input order. limit <= 0 means all.
func (s *Store) GetFeatureRows(runID string, limit int) ([]model.FeatureRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT row_json FROM feature_rows WHERE run_id = ? ORDER BY position LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.FeatureRow{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var row model.FeatureRow
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", len(out), err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything recorded for it
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"feature_rows", "run_logs", "run_errors"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	if err := expectRow(res, runID); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (model.RunRecord, error) {
	var run model.RunRecord
	var policy string
	var columns sql.NullString
	if err := sc.Scan(&run.ID, &run.Source, &policy, &run.Status, &columns,
		&run.RecordCount, &run.RowCount, &run.FailureCount, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return model.RunRecord{}, err
	}
	run.FailurePolicy = model.FailurePolicy(policy)
	if columns.Valid && columns.String != "" {
		if err := json.Unmarshal([]byte(columns.String), &run.Columns); err != nil {
			return model.RunRecord{}, fmt.Errorf("decode columns: %w", err)
		}
	}
	return run, nil
}

func expectRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
