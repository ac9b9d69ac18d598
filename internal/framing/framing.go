// Package framing measures lexical framing for the two sides of a paired
// question template: word count, refusal-like behaviour and one category
// score per lexicon for every response carrying the pair id.
package framing

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/textmetrics"
)

// Row is one scored response.
type Row struct {
	Model       string
	Group       string
	QuestionID  string
	WordCount   int
	RefusalLike bool
	Scores      map[string]float64 // keyed by lexicon ID
}

// GroupSummary aggregates rows for one (model, group) cell.
type GroupSummary struct {
	Model       string             `json:"model"`
	Group       string             `json:"group"`
	Responses   int                `json:"responses"`
	MeanWords   float64            `json:"mean_words"`
	RefusalRate float64            `json:"refusal_rate"`
	MeanScores  map[string]float64 `json:"mean_scores"`
}

// Table is the framing analysis of one pair id within one run.
type Table struct {
	PairID   string
	Lexicons []textmetrics.Lexicon
	Rows     []Row          // sorted by question_id, then model
	Summary  []GroupSummary // sorted by model, then group
}

// Columns returns the CSV header for the table.
func (t *Table) Columns() []string {
	cols := []string{"model", "group", "question_id", "word_count", "refusal_like"}
	for _, lex := range t.Lexicons {
		cols = append(cols, lex.Name()+"_score")
	}
	return cols
}

// Analyze scores every record whose pair_id equals pairID. Lexicons default
// to the built-ins when none are given.
func Analyze(records []audit.ResponseRecord, pairID string, lexicons []textmetrics.Lexicon, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if pairID == "" {
		return nil, fmt.Errorf("analyze framing: pair id is required")
	}
	if len(lexicons) == 0 {
		lexicons = textmetrics.DefaultLexicons()
	}

	rows := make([]Row, 0)
	for _, r := range records {
		if r.PairID != pairID {
			continue
		}
		s := textmetrics.Score(r.Answer, lexicons...)
		rows = append(rows, Row{
			Model:       r.Model,
			Group:       r.Group,
			QuestionID:  r.QuestionID,
			WordCount:   s.WordCount,
			RefusalLike: s.RefusalLike,
			Scores:      s.Categories,
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("analyze framing: no records for pair %s: %w", pairID, audit.ErrEmptyInput)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].QuestionID != rows[j].QuestionID {
			return rows[i].QuestionID < rows[j].QuestionID
		}
		return rows[i].Model < rows[j].Model
	})

	table := &Table{
		PairID:   pairID,
		Lexicons: lexicons,
		Rows:     rows,
		Summary:  summarize(rows, lexicons),
	}

	logger.Info("framing analysis complete",
		"pair_id", pairID,
		"rows", len(rows),
		"cells", len(table.Summary))

	return table, nil
}

func summarize(rows []Row, lexicons []textmetrics.Lexicon) []GroupSummary {
	type key struct{ model, group string }
	type acc struct {
		words    stats.Float64Data
		refusals stats.Float64Data
		scores   map[string]stats.Float64Data
	}

	cells := make(map[key]*acc)
	for _, r := range rows {
		k := key{r.Model, r.Group}
		a, ok := cells[k]
		if !ok {
			a = &acc{scores: make(map[string]stats.Float64Data, len(lexicons))}
			cells[k] = a
		}
		a.words = append(a.words, float64(r.WordCount))
		refusal := 0.0
		if r.RefusalLike {
			refusal = 1
		}
		a.refusals = append(a.refusals, refusal)
		for _, lex := range lexicons {
			a.scores[lex.ID()] = append(a.scores[lex.ID()], r.Scores[lex.ID()])
		}
	}

	out := make([]GroupSummary, 0, len(cells))
	for k, a := range cells {
		means := make(map[string]float64, len(lexicons))
		for _, lex := range lexicons {
			means[lex.ID()] = textmetrics.Round(mean(a.scores[lex.ID()]), 3)
		}
		out = append(out, GroupSummary{
			Model:       k.model,
			Group:       k.group,
			Responses:   len(a.words),
			MeanWords:   textmetrics.Round(mean(a.words), 1),
			RefusalRate: textmetrics.Round(mean(a.refusals), 3),
			MeanScores:  means,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// mean is stats.Mean with an empty cell reading as 0.
func mean(data stats.Float64Data) float64 {
	m, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return m
}
