// Package insight scores metrics rows, selects the top-K most divergent
// questions and narrates them with fixed templates.
package insight

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/aggregate"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/textmetrics"
)

// scorePlaces is the precision of the stored composite score.
const scorePlaces = 4

// Ranker turns a metrics table plus its report into an InsightSet.
type Ranker struct {
	config Config
	logger *slog.Logger
}

// NewRanker creates a ranker. logger may be nil.
func NewRanker(config Config, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{config: config, logger: logger}
}

// scored pairs a metrics row with its composite score.
type scored struct {
	row   audit.MetricsRow
	score float64
}

// #region score

// Score computes the composite score of every row, in input order.
func Score(rows []audit.MetricsRow, w Weights) []float64 {
	spreads := make([]int, len(rows))
	shorts := make([]int, len(rows))
	gaps := make([]*float64, len(rows))
	for i, r := range rows {
		spreads[i] = r.SpreadWords
		shorts[i] = r.ShortResponses
		gaps[i] = r.GapRatio
	}

	nSpread := MinMaxInts(spreads)
	nGap := MinMax(gaps)
	nShort := MinMaxInts(shorts)

	out := make([]float64, len(rows))
	for i := range rows {
		out[i] = Composite(NormalizedSignals{
			Spread: nSpread[i],
			Gap:    nGap[i],
			Short:  nShort[i],
		}, w)
	}
	return out
}

// #endregion score

// #region rank

// Rank selects the top min(K, len(rows)) rows by descending composite score,
// rows with a nil gap ratio last. Equal scores keep metrics-table order.
// Every selected row must have a matching question in report.
func (r *Ranker) Rank(rows []audit.MetricsRow, report *audit.Report) (*audit.InsightSet, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("rank: nil report: %w", audit.ErrInconsistentArtifacts)
	}
	runID := report.Meta.RunID

	scores := Score(rows, r.config.Weights)
	ranked := make([]scored, len(rows))
	for i, row := range rows {
		ranked[i] = scored{row: row, score: scores[i]}
	}
	// Rows without a gap ratio have no full composite and only fill the
	// slots left after every scored row.
	sort.SliceStable(ranked, func(i, j int) bool {
		gi, gj := ranked[i].row.GapRatio != nil, ranked[j].row.GapRatio != nil
		if gi != gj {
			return gi
		}
		return ranked[i].score > ranked[j].score
	})

	k := r.config.TopK
	if k > len(ranked) {
		k = len(ranked)
	}

	top := make([]audit.InsightRecord, 0, k)
	sections := make([]string, 0, k)
	for i, s := range ranked[:k] {
		q, ok := report.Questions[s.row.QuestionID]
		if !ok {
			return nil, fmt.Errorf("rank run %s: question %s in metrics but not in report: %w",
				runID, s.row.QuestionID, audit.ErrInconsistentArtifacts)
		}
		longest, shortest := aggregate.Extremes(q.Responses)

		top = append(top, audit.InsightRecord{
			Rank:           i + 1,
			QuestionID:     s.row.QuestionID,
			Section:        q.Section,
			Prompt:         q.Prompt,
			SpreadWords:    s.row.SpreadWords,
			GapRatio:       s.row.GapRatio,
			ShortResponses: s.row.ShortResponses,
			ShortestModel:  shortest,
			LongestModel:   longest,
			Score:          textmetrics.Round(s.score, scorePlaces),
			Title:          Title(s.row.ShortResponses, s.row.GapRatio),
			Insight:        Narrative(s.row.SpreadWords, s.row.GapRatio, shortest, longest),
			WhyItMatters:   WhyItMatters,
		})
		sections = append(sections, q.Section)
	}

	counts, dominant := SectionTally(sections)

	r.logger.Info("ranking complete",
		"run_id", runID,
		"rows", len(rows),
		"selected", len(top),
		"dominant_section", dominant)

	return &audit.InsightSet{
		RunID:           runID,
		MetaInsight:     MetaInsight(),
		SectionCounts:   counts,
		DominantSection: dominant,
		Top:             top,
	}, nil
}

// #endregion rank
