// Package replay reruns the aggregate and rank stages in memory against a
// recorded fixture and reports every drift from the expected output.
package replay

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/aggregate"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/insight"
)

// #region types

// Check outcomes.
const (
	ActionMatch    = "match"
	ActionMismatch = "mismatch"
	ActionMissing  = "missing"
)

// ReplayConfig bundles the aggregation and ranking configs for a replay run.
type ReplayConfig struct {
	AggregateConfig aggregate.Config
	RankConfig      insight.Config
}

// ReplayResult is the outcome of one expectation check.
type ReplayResult struct {
	Check  string // "question:<id>" | "top:<rank>"
	Action string // "match" | "mismatch" | "missing"
	Reason string
}

// Outcome holds every check plus the artifacts the replay produced.
type Outcome struct {
	Results  []ReplayResult
	Report   *audit.Report
	Rows     []audit.MetricsRow
	Insights *audit.InsightSet
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalChecks int
	Matches     int
	Mismatches  int
	Missing     int
}

// Drifted reports whether any check failed.
func (s ReplaySummary) Drifted() bool {
	return s.Mismatches+s.Missing > 0
}

// #endregion types

// #region replay

// Replay aggregates and ranks the fixture records in memory, then compares
// per-question metrics and the ranked question ids against the fixture.
func Replay(f *Fixture) (*Outcome, error) {
	config := f.Config.ToReplayConfig()
	runID := f.RunID
	if runID == "" {
		runID = "replay"
	}

	quiet := slog.New(slog.DiscardHandler)
	agg, err := aggregate.NewAggregator(config.AggregateConfig, quiet).Aggregate(runID, f.Records)
	if err != nil {
		return nil, fmt.Errorf("replay aggregate: %w", err)
	}
	set, err := insight.NewRanker(config.RankConfig, quiet).Rank(agg.Rows, agg.Report)
	if err != nil {
		return nil, fmt.Errorf("replay rank: %w", err)
	}

	results := make([]ReplayResult, 0, len(f.ExpectedQuestions)+len(f.ExpectedTop))
	for _, want := range f.ExpectedQuestions {
		results = append(results, checkQuestion(want, agg.Report))
	}
	results = append(results, checkTop(f.ExpectedTop, set)...)

	return &Outcome{Results: results, Report: agg.Report, Rows: agg.Rows, Insights: set}, nil
}

func checkQuestion(want FixtureExpectedQuestion, report *audit.Report) ReplayResult {
	check := "question:" + want.QuestionID
	q, ok := report.Questions[want.QuestionID]
	if !ok {
		return ReplayResult{Check: check, Action: ActionMissing, Reason: "question not in aggregate report"}
	}
	got := q.Metrics

	var diffs []string
	if got.SpreadWords != want.SpreadWords {
		diffs = append(diffs, fmt.Sprintf("spread %d != %d", got.SpreadWords, want.SpreadWords))
	}
	if !sameGap(got.GapRatio, want.GapRatio) {
		diffs = append(diffs, fmt.Sprintf("gap %s != %s", insight.FormatGap(got.GapRatio), insight.FormatGap(want.GapRatio)))
	}
	if want.ShortestModel != "" && got.ShortestModel != want.ShortestModel {
		diffs = append(diffs, fmt.Sprintf("shortest %s != %s", got.ShortestModel, want.ShortestModel))
	}
	if want.LongestModel != "" && got.LongestModel != want.LongestModel {
		diffs = append(diffs, fmt.Sprintf("longest %s != %s", got.LongestModel, want.LongestModel))
	}
	if strings.Join(got.ShortResponseModels, ",") != strings.Join(want.ShortResponseModels, ",") {
		diffs = append(diffs, fmt.Sprintf("short models %v != %v", got.ShortResponseModels, want.ShortResponseModels))
	}

	if len(diffs) > 0 {
		return ReplayResult{Check: check, Action: ActionMismatch, Reason: strings.Join(diffs, "; ")}
	}
	return ReplayResult{Check: check, Action: ActionMatch}
}

func checkTop(want []string, set *audit.InsightSet) []ReplayResult {
	results := make([]ReplayResult, 0, len(want))
	for i, qid := range want {
		check := fmt.Sprintf("top:%d", i+1)
		switch {
		case i >= len(set.Top):
			results = append(results, ReplayResult{Check: check, Action: ActionMissing,
				Reason: fmt.Sprintf("expected %s, ranking has %d entries", qid, len(set.Top))})
		case set.Top[i].QuestionID != qid:
			results = append(results, ReplayResult{Check: check, Action: ActionMismatch,
				Reason: fmt.Sprintf("got %s, expected %s", set.Top[i].QuestionID, qid)})
		default:
			results = append(results, ReplayResult{Check: check, Action: ActionMatch})
		}
	}
	if len(set.Top) > len(want) {
		results = append(results, ReplayResult{Check: "top:count", Action: ActionMismatch,
			Reason: fmt.Sprintf("ranking has %d entries, expected %d", len(set.Top), len(want))})
	}
	return results
}

func sameGap(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) < 1e-9
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalChecks: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionMatch:
			s.Matches++
		case ActionMismatch:
			s.Mismatches++
		case ActionMissing:
			s.Missing++
		}
	}
	return s
}

// #endregion replay
