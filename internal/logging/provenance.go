// Package logging writes stage outcomes to the ledger's provenance_log table.
package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (stage_id, run_id, stage, decision, reason, artifacts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.StageID,
		entry.RunID,
		entry.Stage,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.Artifacts),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region encode
// JoinArtifacts renders artifact paths for the artifacts column.
func JoinArtifacts(paths ...string) string {
	return strings.Join(paths, ",")
}

// EncodeJSON marshals v for a ledger JSON column. A nil v encodes as "".
func EncodeJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode ledger json: %w", err)
	}
	return string(data), nil
}

// #endregion encode

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
