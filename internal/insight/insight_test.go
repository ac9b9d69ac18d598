package insight

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/aggregate"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("w ", n))
}

func rec(qid, section, model string, n int) audit.ResponseRecord {
	return audit.ResponseRecord{
		RunID:      "run_test",
		QuestionID: qid,
		Model:      model,
		Section:    section,
		Prompt:     "prompt for " + qid,
		Answer:     words(n),
	}
}

// scenarioRun aggregates Q1 = {A:10, B:15, C:60} and Q2 = {A:5, B:6, C:7}.
func scenarioRun(t *testing.T) *aggregate.Result {
	t.Helper()
	agg := aggregate.NewAggregator(aggregate.DefaultConfig(), nil).
		WithClock(func() time.Time { return time.Date(2026, 1, 16, 8, 27, 14, 0, time.UTC) })
	res, err := agg.Aggregate("run_test", []audit.ResponseRecord{
		rec("Q1", "platforms", "A", 10), rec("Q1", "platforms", "B", 15), rec("Q1", "platforms", "C", 60),
		rec("Q2", "policy", "A", 5), rec("Q2", "policy", "B", 6), rec("Q2", "policy", "C", 7),
	})
	require.NoError(t, err)
	return res
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		short int
		gap   *float64
		want  string
	}{
		{"short response wins", 1, audit.Float(50), "Narrative asymmetry in normative model responses"},
		{"large gap", 0, audit.Float(10.5), "Substantial divergence in narrative length between models"},
		{"gap exactly ten", 0, audit.Float(10), "Differences in narrative strategies of language models"},
		{"null gap", 0, nil, "Differences in narrative strategies of language models"},
		{"default", 0, audit.Float(1.4), "Differences in narrative strategies of language models"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.short, tt.gap))
		})
	}
}

func TestNarrative(t *testing.T) {
	got := Narrative(50, audit.Float(6), "A", "C")
	assert.Equal(t,
		"The question reveals a 50-word difference in response length (max/min ratio 6.00×). "+
			"A answers most briefly, while C develops the topic the most. "+
			"The presence of a short response suggests caution or a restricted narrative.",
		got)

	assert.Contains(t, Narrative(25, nil, "A", "B"), "(max/min ratio undefined)")
}

func TestFixedSentences(t *testing.T) {
	assert.Equal(t,
		"It points to different default narrative strategies of the models in normative responses.",
		WhyItMatters)
	assert.Equal(t,
		"The top-ranked questions concentrate on normative reactions of digital platforms. "+
			"This suggests that this type of question most often reveals differences in the default "+
			"narrative strategies of language models.",
		MetaInsight())
}

func TestSectionTally(t *testing.T) {
	counts, dominant := SectionTally([]string{"b", "a", "b", "a", "c"})
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 1}, counts)
	assert.Equal(t, "a", dominant, "ties resolve to the smaller section name")

	counts, dominant = SectionTally(nil)
	assert.Empty(t, counts)
	assert.Equal(t, "", dominant)
}

func TestMinMax(t *testing.T) {
	tests := []struct {
		name string
		in   []*float64
		want []float64
	}{
		{"spread", []*float64{audit.Float(1), audit.Float(3), audit.Float(2)}, []float64{0, 1, 0.5}},
		{"constant column", []*float64{audit.Float(4), audit.Float(4)}, []float64{0, 0}},
		{"absent is zero", []*float64{audit.Float(2), nil, audit.Float(6)}, []float64{0, 0, 1}},
		{"absent outside range", []*float64{nil, audit.Float(3), audit.Float(1), audit.Float(2)}, []float64{0, 1, 0, 0.5}},
		{"constant with absent", []*float64{audit.Float(2), nil}, []float64{0, 0}},
		{"all absent", []*float64{nil, nil}, []float64{0, 0}},
		{"empty", []*float64{}, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinMax(tt.in)
			assert.Equal(t, tt.want, got)
			for _, v := range got {
				assert.False(t, math.IsNaN(v))
			}
		})
	}
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.Error(t, Weights{Spread: 0.5, Gap: 0.5, Short: 0.5}.Validate())
	assert.Error(t, Weights{Spread: 1.2, Gap: -0.2, Short: 0}.Validate())
	assert.Error(t, Config{TopK: 0, Weights: DefaultWeights()}.Validate())
}

func TestComposite_MonotonicPerInput(t *testing.T) {
	w := DefaultWeights()
	base := NormalizedSignals{Spread: 0.3, Gap: 0.3, Short: 0.3}
	s0 := Composite(base, w)

	up := base
	up.Spread = 0.9
	assert.Greater(t, Composite(up, w), s0)
	up = base
	up.Gap = 0.9
	assert.Greater(t, Composite(up, w), s0)
	up = base
	up.Short = 0.9
	assert.Greater(t, Composite(up, w), s0)
}

func TestRank_EndToEndScenario(t *testing.T) {
	res := scenarioRun(t)

	set, err := NewRanker(Config{TopK: 1, Weights: DefaultWeights()}, nil).Rank(res.Rows, res.Report)
	require.NoError(t, err)
	require.Len(t, set.Top, 1)

	top := set.Top[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "Q1", top.QuestionID)
	assert.InDelta(t, 0.85, top.Score, 1e-9)
	assert.Equal(t, "A", top.ShortestModel)
	assert.Equal(t, "C", top.LongestModel)
	assert.Equal(t, "Narrative asymmetry in normative model responses", top.Title)
	assert.Contains(t, top.Insight, "50-word difference")
	assert.Contains(t, top.Insight, "6.00×")
	assert.Equal(t, "run_test", set.RunID)
	assert.Equal(t, map[string]int{"platforms": 1}, set.SectionCounts)
	assert.Equal(t, "platforms", set.DominantSection)
	assert.Equal(t, FixedMetaInsight, set.MetaInsight)
}

func TestRank_ReturnsMinKN(t *testing.T) {
	res := scenarioRun(t)

	set, err := NewRanker(DefaultConfig(), nil).Rank(res.Rows, res.Report)
	require.NoError(t, err)
	require.Len(t, set.Top, 2)
	assert.Equal(t, "Q1", set.Top[0].QuestionID)
	assert.Equal(t, "Q2", set.Top[1].QuestionID)
	assert.InDelta(t, 0.15, set.Top[1].Score, 1e-9)
	assert.Equal(t, 2, set.Top[1].Rank)
}

func TestRank_EmptyRows(t *testing.T) {
	res := scenarioRun(t)
	set, err := NewRanker(DefaultConfig(), nil).Rank(nil, res.Report)
	require.NoError(t, err)
	assert.Empty(t, set.Top)
	assert.Equal(t, "", set.DominantSection)
}

func TestRank_ConstantColumnsScoreZero(t *testing.T) {
	rows := []audit.MetricsRow{
		{QuestionID: "Q1", SpreadWords: 10, GapRatio: audit.Float(2), ShortResponses: 1},
		{QuestionID: "Q2", SpreadWords: 10, GapRatio: audit.Float(2), ShortResponses: 1},
	}
	for _, s := range Score(rows, DefaultWeights()) {
		assert.Equal(t, 0.0, s)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	report := &audit.Report{
		Meta: audit.RunMeta{RunID: "run_tie"},
		Questions: map[string]audit.QuestionAggregate{
			"Q2": {Section: "s", Responses: map[string]audit.ModelResponse{"A": {Words: 1}, "B": {Words: 2}}},
			"Q1": {Section: "s", Responses: map[string]audit.ModelResponse{"A": {Words: 1}, "B": {Words: 2}}},
		},
	}
	rows := []audit.MetricsRow{
		{QuestionID: "Q2", SpreadWords: 1, GapRatio: audit.Float(2)},
		{QuestionID: "Q1", SpreadWords: 1, GapRatio: audit.Float(2)},
	}
	set, err := NewRanker(DefaultConfig(), nil).Rank(rows, report)
	require.NoError(t, err)
	assert.Equal(t, "Q2", set.Top[0].QuestionID)
	assert.Equal(t, "Q1", set.Top[1].QuestionID)
}

func TestRank_NilGapRanksAfterScoredRows(t *testing.T) {
	responses := map[string]audit.ModelResponse{"A": {Words: 0}, "B": {Words: 40}}
	report := &audit.Report{
		Meta: audit.RunMeta{RunID: "run_gap"},
		Questions: map[string]audit.QuestionAggregate{
			"A": {Section: "s", Responses: responses},
			"B": {Section: "s", Responses: responses},
			"C": {Section: "s", Responses: responses},
		},
	}
	rows := []audit.MetricsRow{
		{QuestionID: "A", SpreadWords: 40, GapRatio: audit.Float(2)},
		{QuestionID: "B", SpreadWords: 40, GapRatio: nil, ShortResponses: 1},
		{QuestionID: "C", SpreadWords: 10, GapRatio: audit.Float(1.5)},
	}

	assert.InDeltaSlice(t, []float64{0.85, 0.7, 0}, Score(rows, DefaultWeights()), 1e-9)

	set, err := NewRanker(DefaultConfig(), nil).Rank(rows, report)
	require.NoError(t, err)
	var got []string
	for _, ins := range set.Top {
		got = append(got, ins.QuestionID)
	}
	assert.Equal(t, []string{"A", "C", "B"}, got)

	cfg := DefaultConfig()
	cfg.TopK = 2
	set, err = NewRanker(cfg, nil).Rank(rows, report)
	require.NoError(t, err)
	require.Len(t, set.Top, 2)
	assert.Equal(t, "C", set.Top[1].QuestionID)
}

func TestRank_MissingQuestionIsInconsistent(t *testing.T) {
	res := scenarioRun(t)
	rows := append(res.Rows, audit.MetricsRow{RunID: "run_test", QuestionID: "Q9", SpreadWords: 500})

	_, err := NewRanker(DefaultConfig(), nil).Rank(rows, res.Report)
	require.Error(t, err)
	assert.True(t, errors.Is(err, audit.ErrInconsistentArtifacts))
}

func TestRenderMarkdown(t *testing.T) {
	res := scenarioRun(t)
	set, err := NewRanker(DefaultConfig(), nil).Rank(res.Rows, res.Report)
	require.NoError(t, err)

	md := RenderMarkdown(set)
	assert.True(t, strings.HasPrefix(md, "# BiasLab: Top 2 insights (rule-based)\n"))
	assert.Contains(t, md, "**Run:** `run_test`")
	assert.Contains(t, md, set.MetaInsight)
	assert.Contains(t, md, "## 1. "+set.Top[0].Title)
	assert.Contains(t, md, "**ID:** `Q2`")
	assert.Contains(t, md, "gap=6.00×")
	assert.Contains(t, md, "**Sections:** `platforms` 1 · `policy` 1")
	for _, ins := range set.Top {
		assert.Contains(t, md, ins.Insight)
	}
}
