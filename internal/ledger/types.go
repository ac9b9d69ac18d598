package ledger

import "time"

// #region status
// Stage statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Stage names.
const (
	StageAggregate     = "aggregate"
	StageRank          = "rank"
	StageLexical       = "lexical"
	StageSanityRaw     = "sanity_raw"
	StageSanityMetrics = "sanity_metrics"
)

// #endregion status

// #region stage-record
// StageRecord is one execution of a pipeline stage against a run.
type StageRecord struct {
	StageID    string    `json:"stage_id"`
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"` // "aggregate" | "rank" | "lexical" | "sanity_raw" | "sanity_metrics"
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	ConfigJSON string    `json:"config_json,omitempty"`
	CountsJSON string    `json:"counts_json,omitempty"`
}

// Finished reports whether the stage has a terminal status.
func (r StageRecord) Finished() bool {
	return r.Status != StatusRunning
}

// #endregion stage-record

// #region stage-with-provenance
// StageWithProvenance pairs a stage execution with its latest provenance row.
type StageWithProvenance struct {
	StageRecord
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Artifacts string `json:"artifacts,omitempty"`
}

// #endregion stage-with-provenance
