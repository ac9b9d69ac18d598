package audit

import "time"

// #region response-record

// ResponseRecord is one model's answer to one question within one run.
// Serialized one per line in the raw response log.
type ResponseRecord struct {
	RunID      string `json:"run_id"`
	QuestionID string `json:"question_id"`
	Model      string `json:"model"`
	Section    string `json:"section,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Answer     string `json:"answer"`

	// Paired-comparison questions only
	Group  string `json:"group,omitempty"`
	PairID string `json:"pair_id,omitempty"`
	Which  string `json:"which,omitempty"` // "group_a" | "group_b"

	// Written by the collection client, carried through untouched
	Timestamp string `json:"timestamp,omitempty"`
	Benchmark string `json:"benchmark,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Language  string `json:"language,omitempty"`
}

// Pair returns the pairing metadata carried by the record.
func (r ResponseRecord) Pair() PairMeta {
	return PairMeta{PairID: r.PairID, Group: r.Group, Which: r.Which}
}

// #endregion response-record

// #region question-aggregate

// PairMeta identifies which side of a group-pair template produced a question.
type PairMeta struct {
	PairID string `json:"pair_id,omitempty"`
	Group  string `json:"group,omitempty"`
	Which  string `json:"which,omitempty"`
}

// ModelResponse is one model's answer within a QuestionAggregate.
type ModelResponse struct {
	Words  int    `json:"words"`
	Answer string `json:"answer"`
}

// DivergenceMetrics captures cross-model length divergence for one question.
type DivergenceMetrics struct {
	SpreadWords         int      `json:"inter_model_spread_words"`
	LongestModel        string   `json:"longest_model"`
	ShortestModel       string   `json:"shortest_model"`
	GapRatio            *float64 `json:"relative_gap_ratio"` // nil when the shortest answer has 0 words
	ShortResponseModels []string `json:"short_response_models"`
}

// QuestionAggregate groups every model's answer to one question.
type QuestionAggregate struct {
	Section   string                   `json:"section"`
	Prompt    string                   `json:"prompt"`
	Meta      PairMeta                 `json:"meta"`
	Responses map[string]ModelResponse `json:"responses"`
	Metrics   DivergenceMetrics        `json:"metrics"`
}

// #endregion question-aggregate

// #region run-meta

// RunMeta is the per-run configuration snapshot written at aggregation time.
type RunMeta struct {
	RunID                  string    `json:"run_id"`
	CreatedAt              time.Time `json:"created_at"`
	Models                 []string  `json:"models"`
	QuestionsTotal         int       `json:"questions_total"`
	ShortResponseThreshold int       `json:"short_response_threshold"`
	SourceRecords          int       `json:"source_records"`
	DroppedQuestions       int       `json:"dropped_questions"`
}

// Report is the aggregate report artifact for one run.
type Report struct {
	Meta      RunMeta                      `json:"meta"`
	Questions map[string]QuestionAggregate `json:"questions"`
}

// #endregion run-meta

// #region metrics-row

// MetricsRow is one line of the per-run metrics table.
type MetricsRow struct {
	RunID          string   `json:"run_id"`
	QuestionID     string   `json:"question_id"`
	Section        string   `json:"section"`
	SpreadWords    int      `json:"spread_words"`
	GapRatio       *float64 `json:"gap_ratio"`
	ShortResponses int      `json:"short_responses"`
}

// #endregion metrics-row

// #region insight

// InsightRecord is one ranked, narrated question.
type InsightRecord struct {
	Rank           int      `json:"rank"`
	QuestionID     string   `json:"question_id"`
	Section        string   `json:"section"`
	Prompt         string   `json:"prompt"`
	SpreadWords    int      `json:"spread_words"`
	GapRatio       *float64 `json:"gap_ratio"`
	ShortResponses int      `json:"short_responses"`
	ShortestModel  string   `json:"shortest_model"`
	LongestModel   string   `json:"longest_model"`
	Score          float64  `json:"score"`
	Title          string   `json:"title"`
	Insight        string   `json:"insight"`
	WhyItMatters   string   `json:"why_it_matters"`
}

// InsightSet is the top-K insight artifact for one run.
type InsightSet struct {
	RunID           string          `json:"run_id"`
	MetaInsight     string          `json:"meta_insight"`
	SectionCounts   map[string]int  `json:"section_counts"`
	DominantSection string          `json:"dominant_section,omitempty"`
	Top             []InsightRecord `json:"top"`
}

// #endregion insight

// Float returns a pointer to v. Used for optional ratios.
func Float(v float64) *float64 {
	return &v
}
