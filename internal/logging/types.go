package logging

import "time"

// Stage outcomes recorded in provenance_log.decision.
const (
	DecisionWritten = "written"
	DecisionAborted = "aborted"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	StageID   string
	RunID     string
	Stage     string
	Decision  string // "written" | "aborted"
	Reason    string
	Artifacts string // comma-separated artifact paths
	CreatedAt time.Time
}

// #endregion provenance-entry

// #region stage-snapshot
// StageSnapshot captures the thresholds and weights active when a stage ran.
// Serialized as JSON into stage_runs.config_json.
type StageSnapshot struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`

	// Aggregation
	ShortResponseThreshold int `json:"short_response_threshold,omitempty"`

	// Ranking
	TopK    int              `json:"top_k,omitempty"`
	Weights *SnapshotWeights `json:"weights,omitempty"`

	// Framing
	PairID   string   `json:"pair_id,omitempty"`
	Lexicons []string `json:"lexicons,omitempty"` // lexicon ids, e.g. "systemic@v1"

	// Sanity
	AbsurdWordCount    int `json:"absurd_word_count,omitempty"`
	VeryShortWordCount int `json:"very_short_word_count,omitempty"`
}

// SnapshotWeights are the composite-score weights active at decision time.
type SnapshotWeights struct {
	Spread float64 `json:"spread"`
	Gap    float64 `json:"gap"`
	Short  float64 `json:"short"`
}

// StageCounts summarizes what a stage produced. Serialized into
// stage_runs.counts_json.
type StageCounts struct {
	Records   int `json:"records,omitempty"`
	Questions int `json:"questions,omitempty"`
	Dropped   int `json:"dropped,omitempty"`
	Insights  int `json:"insights,omitempty"`
	Rows      int `json:"rows,omitempty"`
	Flags     int `json:"flags,omitempty"`
}

// #endregion stage-snapshot
