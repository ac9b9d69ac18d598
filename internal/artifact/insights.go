package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/framing"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/insight"
)

// #region insights

// WriteInsights writes the JSON and Markdown insight documents, both
// rendered from set. If either write fails neither document changes.
func (s *Store) WriteInsights(set *audit.InsightSet) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}
	md := insight.RenderMarkdown(set)

	var b batch
	if err := b.addBytes(s.InsightsJSONPath(set.RunID), data); err != nil {
		return fmt.Errorf("write insights json: %w", err)
	}
	if err := b.addBytes(s.InsightsMarkdownPath(set.RunID), []byte(md)); err != nil {
		b.discard()
		return fmt.Errorf("write insights markdown: %w", err)
	}
	if err := b.commit(); err != nil {
		return fmt.Errorf("write insights: %w", err)
	}
	return nil
}

// insightsFile accepts the current key and the older top5/items keys.
type insightsFile struct {
	audit.InsightSet
	Top5  []audit.InsightRecord `json:"top5"`
	Items []audit.InsightRecord `json:"items"`
}

// ReadInsights loads the JSON insight document of a run.
func (s *Store) ReadInsights(runID string) (*audit.InsightSet, error) {
	path := s.InsightsJSONPath(runID)
	data, err := readFile(KindInsights, path)
	if err != nil {
		return nil, err
	}
	var f insightsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &audit.MalformedRecordError{Path: path, Line: 1, Err: err}
	}
	set := f.InsightSet
	switch {
	case set.Top != nil:
	case f.Top5 != nil:
		set.Top = f.Top5
	case f.Items != nil:
		set.Top = f.Items
	default:
		set.Top = []audit.InsightRecord{}
	}
	for i := range set.Top {
		if set.Top[i].Rank == 0 {
			set.Top[i].Rank = i + 1
		}
	}
	return &set, nil
}

// ReadInsightsMarkdown returns the Markdown insight document of a run.
func (s *Store) ReadInsightsMarkdown(runID string) (string, error) {
	data, err := readFile(KindInsights, s.InsightsMarkdownPath(runID))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// #endregion insights

// #region lexical

// WriteLexical writes a framing table as CSV.
func (s *Store) WriteLexical(runID string, table *framing.Table) error {
	err := writeAtomic(s.LexicalPath(table.PairID, runID), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(table.Columns()); err != nil {
			return err
		}
		for _, r := range table.Rows {
			rec := []string{
				r.Model,
				r.Group,
				r.QuestionID,
				strconv.Itoa(r.WordCount),
				strconv.FormatBool(r.RefusalLike),
			}
			for _, lex := range table.Lexicons {
				rec = append(rec, strconv.FormatFloat(r.Scores[lex.ID()], 'f', -1, 64))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write lexical table: %w", err)
	}
	return nil
}

// #endregion lexical
