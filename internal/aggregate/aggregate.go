// Package aggregate folds a run's raw response records into per-question
// divergence statistics and the flat metrics table.
package aggregate

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/textmetrics"
)

// #region config

// Config holds aggregation thresholds.
type Config struct {
	ShortResponseThreshold int // word count strictly below this marks a short response
}

// DefaultConfig returns the standard threshold of 50 words.
func DefaultConfig() Config {
	return Config{ShortResponseThreshold: 50}
}

// Validate checks that the threshold is usable.
func (c Config) Validate() error {
	if c.ShortResponseThreshold <= 0 {
		return fmt.Errorf("short_response_threshold must be positive, got %d", c.ShortResponseThreshold)
	}
	return nil
}

// #endregion config

// #region aggregator

// Aggregator builds the aggregate report and metrics table for one run.
type Aggregator struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewAggregator creates an aggregator. logger may be nil.
func NewAggregator(config Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		config: config,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source for RunMeta.CreatedAt.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Result is the output of one aggregation pass.
type Result struct {
	Report *audit.Report
	Rows   []audit.MetricsRow // sorted by question_id
}

// #endregion aggregator

// #region fold

// partial accumulates one question while scanning records.
type partial struct {
	section   string
	prompt    string
	seen      bool
	meta      audit.PairMeta
	responses map[string]audit.ModelResponse
}

// fold groups records by question. Section and prompt come from the first
// record seen for a question; each pairing key is taken from the first record
// that carries it; a later answer from the same model replaces the earlier one.
func fold(records []audit.ResponseRecord) (map[string]*partial, map[string]struct{}) {
	acc := make(map[string]*partial)
	models := make(map[string]struct{})

	for _, r := range records {
		models[r.Model] = struct{}{}

		p, ok := acc[r.QuestionID]
		if !ok {
			p = &partial{responses: make(map[string]audit.ModelResponse)}
			acc[r.QuestionID] = p
		}
		if !p.seen {
			p.section = r.Section
			p.prompt = r.Prompt
			p.seen = true
		}
		if p.meta.PairID == "" {
			p.meta.PairID = r.PairID
		}
		if p.meta.Group == "" {
			p.meta.Group = r.Group
		}
		if p.meta.Which == "" {
			p.meta.Which = r.Which
		}
		p.responses[r.Model] = audit.ModelResponse{
			Words:  textmetrics.WordCount(r.Answer),
			Answer: r.Answer,
		}
	}
	return acc, models
}

// #endregion fold

// #region aggregate

// Aggregate runs one full pass over records. Empty input and a run with no
// comparable question are both fatal.
func (a *Aggregator) Aggregate(runID string, records []audit.ResponseRecord) (*Result, error) {
	if err := a.config.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("aggregate run %s: no response records: %w", runID, audit.ErrEmptyInput)
	}

	acc, modelSet := fold(records)

	questions := make(map[string]audit.QuestionAggregate, len(acc))
	rows := make([]audit.MetricsRow, 0, len(acc))
	dropped := 0

	for qid, p := range acc {
		if len(p.responses) < 2 {
			dropped++
			a.logger.Debug("dropping single-model question", "run_id", runID, "question_id", qid)
			continue
		}
		metrics := Divergence(p.responses, a.config.ShortResponseThreshold)
		questions[qid] = audit.QuestionAggregate{
			Section:   p.section,
			Prompt:    p.prompt,
			Meta:      p.meta,
			Responses: p.responses,
			Metrics:   metrics,
		}
		rows = append(rows, audit.MetricsRow{
			RunID:          runID,
			QuestionID:     qid,
			Section:        p.section,
			SpreadWords:    metrics.SpreadWords,
			GapRatio:       metrics.GapRatio,
			ShortResponses: len(metrics.ShortResponseModels),
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("aggregate run %s: no question answered by 2+ models: %w", runID, audit.ErrEmptyInput)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].QuestionID < rows[j].QuestionID })

	models := make([]string, 0, len(modelSet))
	for m := range modelSet {
		models = append(models, m)
	}
	sort.Strings(models)

	report := &audit.Report{
		Meta: audit.RunMeta{
			RunID:                  runID,
			CreatedAt:              a.now(),
			Models:                 models,
			QuestionsTotal:         len(questions),
			ShortResponseThreshold: a.config.ShortResponseThreshold,
			SourceRecords:          len(records),
			DroppedQuestions:       dropped,
		},
		Questions: questions,
	}

	a.logger.Info("aggregation complete",
		"run_id", runID,
		"records", len(records),
		"questions", len(questions),
		"dropped", dropped,
		"models", len(models))

	return &Result{Report: report, Rows: rows}, nil
}

// #endregion aggregate

// #region divergence

// Divergence computes spread, gap ratio, extremes and short-response models
// for one question's responses.
func Divergence(responses map[string]audit.ModelResponse, shortThreshold int) audit.DivergenceMetrics {
	longest, shortest := Extremes(responses)
	maxWords := responses[longest].Words
	minWords := responses[shortest].Words

	var gap *float64
	if minWords > 0 {
		gap = audit.Float(textmetrics.Round(float64(maxWords)/float64(minWords), 2))
	}

	short := make([]string, 0)
	for _, m := range SortedModels(responses) {
		if responses[m].Words < shortThreshold {
			short = append(short, m)
		}
	}

	return audit.DivergenceMetrics{
		SpreadWords:         maxWords - minWords,
		LongestModel:        longest,
		ShortestModel:       shortest,
		GapRatio:            gap,
		ShortResponseModels: short,
	}
}

// Extremes returns the models with the highest and lowest word counts.
// Models are visited in lexicographic order and the first to reach an
// extreme keeps it, so ties resolve to the smallest model identifier.
func Extremes(responses map[string]audit.ModelResponse) (longest, shortest string) {
	first := true
	var maxWords, minWords int
	for _, m := range SortedModels(responses) {
		w := responses[m].Words
		if first {
			longest, shortest = m, m
			maxWords, minWords = w, w
			first = false
			continue
		}
		if w > maxWords {
			longest, maxWords = m, w
		}
		if w < minWords {
			shortest, minWords = m, w
		}
	}
	return longest, shortest
}

// SortedModels returns the response keys in lexicographic order.
func SortedModels(responses map[string]audit.ModelResponse) []string {
	models := make([]string, 0, len(responses))
	for m := range responses {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// #endregion divergence
