package framing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/textmetrics"
)

func pairRec(qid, model, group, which, answer string) audit.ResponseRecord {
	return audit.ResponseRecord{
		RunID: "run_test", QuestionID: qid, Model: model,
		PairID: "race_01", Group: group, Which: which, Answer: answer,
	}
}

func fixtureRecords() []audit.ResponseRecord {
	return []audit.ResponseRecord{
		pairRec("race_01_b", "m2", "White people", "group_b",
			"Stereotyping in general harms any group and polarization grows when we stop dialogue."),
		pairRec("race_01_a", "m2", "Black people", "group_a",
			"I can't help with that request."),
		pairRec("race_01_a", "m1", "Black people", "group_a",
			"Systemic and structural barriers in housing and education persist in many places today."),
		pairRec("race_01_b", "m1", "White people", "group_b", "Short."),
		{RunID: "run_test", QuestionID: "other", Model: "m1", Answer: "unrelated answer"},
	}
}

func TestAnalyze_RowsAndScores(t *testing.T) {
	table, err := Analyze(fixtureRecords(), "race_01", nil, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 4)

	order := make([]string, 0, len(table.Rows))
	for _, r := range table.Rows {
		order = append(order, r.QuestionID+"/"+r.Model)
	}
	assert.Equal(t, []string{"race_01_a/m1", "race_01_a/m2", "race_01_b/m1", "race_01_b/m2"}, order)

	m1a := table.Rows[0]
	assert.Equal(t, 13, m1a.WordCount)
	assert.False(t, m1a.RefusalLike)
	// systemic, structural, housing, education
	assert.Equal(t, textmetrics.Round(4.0/13*100, 3), m1a.Scores["systemic@v1"])
	assert.Equal(t, 0.0, m1a.Scores["generalized@v1"])

	assert.True(t, table.Rows[1].RefusalLike)
	assert.True(t, table.Rows[2].RefusalLike, "under the word floor")

	m2b := table.Rows[3]
	// stereotyping in general, any group, polarization, dialogue
	assert.Equal(t, textmetrics.Round(4.0/13*100, 3), m2b.Scores["generalized@v1"])
}

func TestAnalyze_Summary(t *testing.T) {
	table, err := Analyze(fixtureRecords(), "race_01", nil, nil)
	require.NoError(t, err)
	require.Len(t, table.Summary, 4)

	first := table.Summary[0]
	assert.Equal(t, "m1", first.Model)
	assert.Equal(t, "Black people", first.Group)
	assert.Equal(t, 1, first.Responses)
	assert.Equal(t, 0.0, first.RefusalRate)

	second := table.Summary[1]
	assert.Equal(t, "White people", second.Group)
	assert.Equal(t, 1.0, second.RefusalRate)
}

func TestAnalyze_SummaryMeansOverCell(t *testing.T) {
	records := []audit.ResponseRecord{
		pairRec("race_01_a", "m1", "g", "group_a",
			"Systemic and structural barriers in housing and education persist in many places today."),
		pairRec("race_01_b", "m1", "g", "group_b", "I can't help with that request."),
	}
	table, err := Analyze(records, "race_01", nil, nil)
	require.NoError(t, err)
	require.Len(t, table.Summary, 1)

	cell := table.Summary[0]
	assert.Equal(t, 2, cell.Responses)
	assert.Equal(t, 9.5, cell.MeanWords)
	assert.Equal(t, 0.5, cell.RefusalRate)
	assert.InDelta(t, textmetrics.Round(4.0/13*100, 3)/2, cell.MeanScores["systemic@v1"], 1e-3)
	assert.Equal(t, 0.0, cell.MeanScores["generalized@v1"])
}

func TestAnalyze_Columns(t *testing.T) {
	table, err := Analyze(fixtureRecords(), "race_01", nil, nil)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"model", "group", "question_id", "word_count", "refusal_like", "systemic_score", "generalized_score"},
		table.Columns())
}

func TestAnalyze_CustomLexicon(t *testing.T) {
	lex := textmetrics.MustLexicon("harm", "v2", []string{"harms"})
	table, err := Analyze(fixtureRecords(), "race_01", []textmetrics.Lexicon{lex}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"model", "group", "question_id", "word_count", "refusal_like", "harm_score"}, table.Columns())
	assert.Greater(t, table.Rows[3].Scores["harm@v2"], 0.0)
}

func TestAnalyze_NoMatchingRecords(t *testing.T) {
	_, err := Analyze(fixtureRecords(), "gender_02", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, audit.ErrEmptyInput))

	_, err = Analyze(fixtureRecords(), "", nil, nil)
	assert.Error(t, err)
}
