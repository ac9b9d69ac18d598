// Package eval runs informational sanity checks over a run's raw log and
// metrics table. Checks report findings; they never modify artifacts.
package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/textmetrics"
)

// #region eval-harness
// EvalHarness runs sanity checks with fixed thresholds.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// RunRaw checks the raw response log: word count distribution, absurdly
// long answers, very short answers, empty answers and a per-model summary.
func (h *EvalHarness) RunRaw(runID string, records []audit.ResponseRecord) (RawReport, error) {
	if len(records) == 0 {
		return RawReport{}, fmt.Errorf("sanity raw %s: %w", runID, audit.ErrEmptyInput)
	}

	counts := make([]int, len(records))
	report := RawReport{
		RunID:      runID,
		Records:    len(records),
		AbsurdLong: []Flagged{},
		VeryShort:  []Flagged{},
		Empty:      []Flagged{},
	}

	type modelAcc struct {
		counts            []int
		veryShort, absurd int
	}
	perModel := make(map[string]*modelAcc)

	for i, r := range records {
		wc := textmetrics.WordCount(r.Answer)
		counts[i] = wc
		f := Flagged{Model: r.Model, QuestionID: r.QuestionID, WordCount: wc}

		acc, ok := perModel[r.Model]
		if !ok {
			acc = &modelAcc{}
			perModel[r.Model] = acc
		}
		acc.counts = append(acc.counts, wc)

		if wc > h.config.AbsurdWordCount {
			report.AbsurdLong = append(report.AbsurdLong, f)
			acc.absurd++
		}
		if wc < h.config.VeryShortWordCount {
			report.VeryShort = append(report.VeryShort, f)
			acc.veryShort++
		}
		if strings.TrimSpace(r.Answer) == "" {
			report.Empty = append(report.Empty, f)
		}
	}

	dist, err := distribution(counts)
	if err != nil {
		return RawReport{}, fmt.Errorf("sanity raw %s: %w", runID, err)
	}
	report.WordCounts = dist

	models := make([]string, 0, len(perModel))
	for m := range perModel {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		acc := perModel[m]
		d, err := distribution(acc.counts)
		if err != nil {
			return RawReport{}, fmt.Errorf("sanity raw %s model %s: %w", runID, m, err)
		}
		report.Models = append(report.Models, ModelSummary{
			Model:      m,
			Responses:  len(acc.counts),
			AvgWords:   textmetrics.Round(d.Mean, 1),
			MinWords:   int(d.Min),
			MaxWords:   int(d.Max),
			VeryShort:  acc.veryShort,
			AbsurdLong: acc.absurd,
		})
	}

	checks := []check{
		{"absurd_long", float64(len(report.AbsurdLong)), len(report.AbsurdLong) == 0,
			fmt.Sprintf("%d answers over %d words", len(report.AbsurdLong), h.config.AbsurdWordCount)},
		{"very_short", float64(len(report.VeryShort)), len(report.VeryShort) == 0,
			fmt.Sprintf("%d answers under %d words", len(report.VeryShort), h.config.VeryShortWordCount)},
		{"empty_answers", float64(len(report.Empty)), len(report.Empty) == 0,
			fmt.Sprintf("%d empty answers", len(report.Empty))},
		{"word_count_mean", dist.Mean, true, ""},
		{"word_count_median", dist.Median, true, ""},
	}
	report.Result = collect(checks)
	return report, nil
}

// RunMetrics checks the metrics table: spread distribution, zero-spread
// questions and how many gap ratios are defined.
func (h *EvalHarness) RunMetrics(runID string, rows []audit.MetricsRow) (MetricsReport, error) {
	if len(rows) == 0 {
		return MetricsReport{}, fmt.Errorf("sanity metrics %s: %w", runID, audit.ErrEmptyInput)
	}

	report := MetricsReport{RunID: runID, Rows: len(rows), ZeroSpread: []string{}}
	spreads := make([]int, len(rows))
	for i, r := range rows {
		spreads[i] = r.SpreadWords
		if r.SpreadWords == 0 {
			report.ZeroSpread = append(report.ZeroSpread, r.QuestionID)
		}
		if r.GapRatio != nil {
			report.GapDefined++
		} else {
			report.GapUndefined++
		}
		report.ShortResponses += r.ShortResponses
	}

	dist, err := distribution(spreads)
	if err != nil {
		return MetricsReport{}, fmt.Errorf("sanity metrics %s: %w", runID, err)
	}
	report.Spread = dist

	checks := []check{
		{"zero_spread_questions", float64(len(report.ZeroSpread)), len(report.ZeroSpread) == 0,
			fmt.Sprintf("%d questions with identical lengths", len(report.ZeroSpread))},
		{"gap_undefined", float64(report.GapUndefined), report.GapUndefined == 0,
			fmt.Sprintf("%d questions with a zero-word answer", report.GapUndefined)},
		{"spread_mean", dist.Mean, true, ""},
		{"short_responses", float64(report.ShortResponses), true, ""},
	}
	report.Result = collect(checks)
	return report, nil
}

// #endregion eval-harness

// #region helpers
type check struct {
	name   string
	value  float64
	pass   bool
	reason string
}

// collect folds checks into an EvalResult in the harness's reporting style.
func collect(checks []check) EvalResult {
	var metrics []EvalMetric
	var failReasons []string
	for _, c := range checks {
		metrics = append(metrics, EvalMetric{Name: c.name, Value: c.value, Pass: c.pass})
		if !c.pass {
			failReasons = append(failReasons, c.reason)
		}
	}

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("sanity flagged: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("sanity flagged %d checks: %s", len(failReasons), strings.Join(failReasons, "; "))
	}
	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// distribution computes min, max, mean and median of a non-empty column.
func distribution(values []int) (Distribution, error) {
	data := stats.LoadRawData(values)
	lo, err := stats.Min(data)
	if err != nil {
		return Distribution{}, fmt.Errorf("min: %w", err)
	}
	hi, err := stats.Max(data)
	if err != nil {
		return Distribution{}, fmt.Errorf("max: %w", err)
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return Distribution{}, fmt.Errorf("mean: %w", err)
	}
	median, err := stats.Median(data)
	if err != nil {
		return Distribution{}, fmt.Errorf("median: %w", err)
	}
	return Distribution{
		Count:  len(values),
		Min:    lo,
		Max:    hi,
		Mean:   textmetrics.Round(mean, 1),
		Median: textmetrics.Round(median, 1),
	}, nil
}

// #endregion helpers
