package eval

// #region eval-config
// EvalConfig holds thresholds for the sanity checks.
type EvalConfig struct {
	AbsurdWordCount    int // flag answers longer than this
	VeryShortWordCount int // flag answers shorter than this
}

// DefaultEvalConfig returns the standard sanity thresholds.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		AbsurdWordCount:    5000,
		VeryShortWordCount: 5,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single sanity check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the outcome of one sanity pass.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result

// #region reports
// Distribution summarizes a numeric column.
type Distribution struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Flagged identifies one response singled out by a check.
type Flagged struct {
	Model      string `json:"model"`
	QuestionID string `json:"question_id"`
	WordCount  int    `json:"word_count"`
}

// ModelSummary is the per-model breakdown of the raw log.
type ModelSummary struct {
	Model      string  `json:"model"`
	Responses  int     `json:"responses"`
	AvgWords   float64 `json:"avg_words"`
	MinWords   int     `json:"min_words"`
	MaxWords   int     `json:"max_words"`
	VeryShort  int     `json:"very_short"`
	AbsurdLong int     `json:"absurd_long"`
}

// RawReport is the sanity summary of a raw response log.
type RawReport struct {
	RunID      string         `json:"run_id"`
	Records    int            `json:"records"`
	WordCounts Distribution   `json:"word_counts"`
	AbsurdLong []Flagged      `json:"absurd_long"`
	VeryShort  []Flagged      `json:"very_short"`
	Empty      []Flagged      `json:"empty"`
	Models     []ModelSummary `json:"models"`
	Result     EvalResult     `json:"result"`
}

// MetricsReport is the sanity summary of a metrics table.
type MetricsReport struct {
	RunID          string       `json:"run_id"`
	Rows           int          `json:"rows"`
	Spread         Distribution `json:"spread"`
	ZeroSpread     []string     `json:"zero_spread"`
	GapDefined     int          `json:"gap_defined"`
	GapUndefined   int          `json:"gap_undefined"`
	ShortResponses int          `json:"short_responses"`
	Result         EvalResult   `json:"result"`
}

// #endregion reports
