// Package ledger records every pipeline stage execution in SQLite so a
// run's artifacts can be traced back to the configuration that wrote them.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrStageNotFound is returned when a stage id or (run, stage) pair has no row.
var ErrStageNotFound = errors.New("stage not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS stage_runs (
	stage_id     TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	config_json  TEXT,
	counts_json  TEXT
);

CREATE INDEX IF NOT EXISTS idx_stage_runs_run ON stage_runs(run_id, stage);

CREATE TABLE IF NOT EXISTS provenance_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	stage_id     TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	stage        TEXT NOT NULL,
	decision     TEXT NOT NULL,
	reason       TEXT,
	artifacts    TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (stage_id) REFERENCES stage_runs(stage_id)
);
`

// #endregion schema

// #region store-struct
// Store manages the stage ledger in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewStoreWithDB(db), nil
}

// NewStoreWithDB wraps an already-migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the ledger tables on db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region begin-stage
// BeginStage inserts a running stage row and returns it.
func (s *Store) BeginStage(runID, stage, configJSON string) (StageRecord, error) {
	rec := StageRecord{
		StageID:    uuid.New().String(),
		RunID:      runID,
		Stage:      stage,
		Status:     StatusRunning,
		StartedAt:  s.now(),
		ConfigJSON: configJSON,
	}

	_, err := s.db.Exec(
		`INSERT INTO stage_runs (stage_id, run_id, stage, status, started_at, config_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.StageID, rec.RunID, rec.Stage, rec.Status,
		rec.StartedAt.Format(timeLayout), nullIfEmpty(configJSON),
	)
	if err != nil {
		return StageRecord{}, fmt.Errorf("begin stage %s/%s: %w", runID, stage, err)
	}
	return rec, nil
}

// #endregion begin-stage

// #region finish-stage
// FinishStage sets the terminal status and counts of a running stage.
func (s *Store) FinishStage(stageID, status, countsJSON string) error {
	if status != StatusSucceeded && status != StatusFailed {
		return fmt.Errorf("finish stage %s: invalid status %q", stageID, status)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE stage_runs SET status = ?, finished_at = ?, counts_json = ? WHERE stage_id = ?`,
		status, s.now().Format(timeLayout), nullIfEmpty(countsJSON), stageID,
	)
	if err != nil {
		return fmt.Errorf("finish stage %s: %w", stageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish stage %s: %w", stageID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish stage %s: %w", stageID, ErrStageNotFound)
	}
	return tx.Commit()
}

// #endregion finish-stage

// #region get-stage
const stageColumns = `stage_id, run_id, stage, status, started_at, finished_at, config_json, counts_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanStage(row scanner, extra ...any) (StageRecord, error) {
	var rec StageRecord
	var startedStr string
	var finishedStr, configJSON, countsJSON sql.NullString

	dest := append([]any{&rec.StageID, &rec.RunID, &rec.Stage, &rec.Status,
		&startedStr, &finishedStr, &configJSON, &countsJSON}, extra...)
	if err := row.Scan(dest...); err != nil {
		return StageRecord{}, err
	}

	rec.StartedAt, _ = time.Parse(timeLayout, startedStr)
	if finishedStr.Valid {
		rec.FinishedAt, _ = time.Parse(timeLayout, finishedStr.String)
	}
	rec.ConfigJSON = configJSON.String
	rec.CountsJSON = countsJSON.String
	return rec, nil
}

// GetStage retrieves one stage execution by id.
func (s *Store) GetStage(id string) (StageRecord, error) {
	rec, err := scanStage(s.db.QueryRow(
		`SELECT `+stageColumns+` FROM stage_runs WHERE stage_id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return StageRecord{}, fmt.Errorf("get stage %s: %w", id, ErrStageNotFound)
	}
	if err != nil {
		return StageRecord{}, fmt.Errorf("get stage %s: %w", id, err)
	}
	return rec, nil
}

// LatestStage returns the most recent execution of stage for runID.
func (s *Store) LatestStage(runID, stage string) (StageRecord, error) {
	rec, err := scanStage(s.db.QueryRow(
		`SELECT `+stageColumns+` FROM stage_runs
		 WHERE run_id = ? AND stage = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`, runID, stage,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return StageRecord{}, fmt.Errorf("latest stage %s/%s: %w", runID, stage, ErrStageNotFound)
	}
	if err != nil {
		return StageRecord{}, fmt.Errorf("latest stage %s/%s: %w", runID, stage, err)
	}
	return rec, nil
}

// #endregion get-stage

// #region list-stages
// ListStages returns the most recent stage executions.
func (s *Store) ListStages(limit int) ([]StageRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+stageColumns+` FROM stage_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		rec, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListStagesWithProvenance returns recent stage executions joined with the
// latest provenance row of each. Stages without provenance have empty fields.
func (s *Store) ListStagesWithProvenance(limit int) ([]StageWithProvenance, error) {
	rows, err := s.db.Query(
		`SELECT s.stage_id, s.run_id, s.stage, s.status, s.started_at, s.finished_at,
		        s.config_json, s.counts_json, p.decision, p.reason, p.artifacts
		 FROM stage_runs s
		 LEFT JOIN provenance_log p
		   ON p.id = (SELECT MAX(id) FROM provenance_log WHERE stage_id = s.stage_id)
		 ORDER BY s.started_at DESC, s.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stages with provenance: %w", err)
	}
	defer rows.Close()

	var records []StageWithProvenance
	for rows.Next() {
		var decision, reason, artifacts sql.NullString
		rec, err := scanStage(rows, &decision, &reason, &artifacts)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, StageWithProvenance{
			StageRecord: rec,
			Decision:    decision.String,
			Reason:      reason.String,
			Artifacts:   artifacts.String,
		})
	}
	return records, rows.Err()
}

// #endregion list-stages

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
