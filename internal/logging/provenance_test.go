package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE provenance_log (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		stage_id  TEXT NOT NULL,
		run_id    TEXT NOT NULL,
		stage     TEXT NOT NULL,
		decision  TEXT NOT NULL,
		reason    TEXT,
		artifacts TEXT,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		StageID:   "s1",
		RunID:     "run_20260116_0827",
		Stage:     "aggregate",
		Decision:  DecisionWritten,
		Reason:    "2 questions",
		Artifacts: JoinArtifacts("reports/a.json", "reports/a.csv"),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM provenance_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var stageID, decision, artifacts string
	db.QueryRow("SELECT stage_id, decision, artifacts FROM provenance_log").Scan(&stageID, &decision, &artifacts)
	if stageID != "s1" {
		t.Errorf("expected stage_id 's1', got %q", stageID)
	}
	if decision != "written" {
		t.Errorf("expected decision 'written', got %q", decision)
	}
	if artifacts != "reports/a.json,reports/a.csv" {
		t.Errorf("unexpected artifacts %q", artifacts)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		StageID:  "s2",
		RunID:    "run_x",
		Stage:    "rank",
		Decision: DecisionAborted,
	}

	before := time.Now().UTC()
	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM provenance_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		StageID:   "s3",
		RunID:     "run_x",
		Stage:     "aggregate",
		Decision:  DecisionAborted,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var reason, artifacts sql.NullString
	db.QueryRow("SELECT reason, artifacts FROM provenance_log").Scan(&reason, &artifacts)
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
	if artifacts.Valid {
		t.Error("expected NULL artifacts for empty string")
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	entry := ProvenanceEntry{StageID: "s4", RunID: "run_x", Stage: "rank", Decision: DecisionWritten}
	if err := LogDecision(db, entry); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region encode-tests
func TestEncodeJSON(t *testing.T) {
	got, err := EncodeJSON(StageSnapshot{
		RunID:   "run_x",
		Stage:   "rank",
		TopK:    5,
		Weights: &SnapshotWeights{Spread: 0.55, Gap: 0.3, Short: 0.15},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"run_id":"run_x","stage":"rank","top_k":5,"weights":{"spread":0.55,"gap":0.3,"short":0.15}}`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	empty, err := EncodeJSON(nil)
	if err != nil || empty != "" {
		t.Errorf("expected empty encoding for nil, got %q, %v", empty, err)
	}
}

// #endregion encode-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	result := nullIfEmpty("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	result := nullIfEmpty("hello")
	if result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
