package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/aggregate"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/eval"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/framing"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/insight"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/ledger"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/logging"
)

// #region aggregate

func aggregateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <run_id>",
		Short: "Group raw answers by question and compute divergence metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.aggregate(args[0])
		},
	}
}

func (a *app) aggregate(runID string) error {
	agg := a.cfg.AggregateConfig()
	snapshot := logging.StageSnapshot{
		RunID:                  runID,
		Stage:                  ledger.StageAggregate,
		ShortResponseThreshold: agg.ShortResponseThreshold,
	}

	return a.runStage(snapshot, func() (stageOutput, error) {
		records, err := a.store.ReadResponses(runID)
		if err != nil {
			return stageOutput{}, err
		}
		if meta, err := a.store.ReadCollectionMeta(runID); err == nil {
			a.logger.Debug("collection meta", "run_id", runID, "models", meta.Models, "created_at", meta.CreatedAt)
		} else if !audit.IsMissingArtifact(err) {
			a.logger.Warn("ignoring unreadable collection meta", "run_id", runID, "error", err)
		}

		result, err := aggregate.NewAggregator(agg, a.logger).Aggregate(runID, records)
		if err != nil {
			return stageOutput{counts: logging.StageCounts{Records: len(records)}}, err
		}
		if err := a.store.WriteAggregate(result.Report, result.Rows); err != nil {
			return stageOutput{}, err
		}

		meta := result.Report.Meta
		fmt.Fprintf(a.out, "aggregated %d records into %d questions (%d dropped)\n",
			meta.SourceRecords, meta.QuestionsTotal, meta.DroppedQuestions)
		fmt.Fprintf(a.out, "  %s\n  %s\n", a.store.ReportPath(runID), a.store.MetricsPath(runID))

		return stageOutput{
			counts: logging.StageCounts{
				Records:   meta.SourceRecords,
				Questions: meta.QuestionsTotal,
				Dropped:   meta.DroppedQuestions,
				Rows:      len(result.Rows),
			},
			artifacts: []string{a.store.ReportPath(runID), a.store.MetricsPath(runID)},
		}, nil
	})
}

// #endregion aggregate

// #region rank

func rankCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "rank <run_id>",
		Short: "Rank questions by composite divergence and narrate the top K",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.rank(args[0], topK)
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of insights to keep (default from config)")
	return cmd
}

// rank runs the ranking stage; topK <= 0 keeps the configured value.
func (a *app) rank(runID string, topK int) error {
	rc := a.cfg.RankConfig()
	if topK > 0 {
		rc.TopK = topK
	}
	snapshot := logging.StageSnapshot{
		RunID: runID,
		Stage: ledger.StageRank,
		TopK:  rc.TopK,
		Weights: &logging.SnapshotWeights{
			Spread: rc.Weights.Spread,
			Gap:    rc.Weights.Gap,
			Short:  rc.Weights.Short,
		},
	}

	return a.runStage(snapshot, func() (stageOutput, error) {
		rows, err := a.store.ReadMetrics(runID)
		if err != nil {
			return stageOutput{}, err
		}
		report, err := a.store.ReadReport(runID)
		if err != nil {
			return stageOutput{}, err
		}

		set, err := insight.NewRanker(rc, a.logger).Rank(rows, report)
		if err != nil {
			return stageOutput{counts: logging.StageCounts{Rows: len(rows)}}, err
		}
		if err := a.store.WriteInsights(set); err != nil {
			return stageOutput{}, err
		}

		fmt.Fprintf(a.out, "ranked %d questions, kept %d insights\n", len(rows), len(set.Top))
		for _, ins := range set.Top {
			fmt.Fprintf(a.out, "  %d. %-24s %.4f  %s\n", ins.Rank, ins.QuestionID, ins.Score, ins.Title)
		}
		fmt.Fprintf(a.out, "  %s\n  %s\n", a.store.InsightsJSONPath(runID), a.store.InsightsMarkdownPath(runID))

		return stageOutput{
			counts:    logging.StageCounts{Rows: len(rows), Insights: len(set.Top)},
			artifacts: []string{a.store.InsightsJSONPath(runID), a.store.InsightsMarkdownPath(runID)},
		}, nil
	})
}

// #endregion rank

// #region pipeline

func pipelineCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "pipeline <run_id>",
		Short: "Run aggregate then rank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.aggregate(args[0]); err != nil {
				return err
			}
			return a.rank(args[0], topK)
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of insights to keep (default from config)")
	return cmd
}

// #endregion pipeline

// #region lexical

func lexicalCmd(a *app) *cobra.Command {
	var pairID string
	cmd := &cobra.Command{
		Use:   "lexical <run_id>",
		Short: "Score framing lexicons for both sides of a paired question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.lexical(args[0], pairID)
		},
	}
	cmd.Flags().StringVar(&pairID, "pair", "", "Pair id to analyze, e.g. race_01 (required)")
	_ = cmd.MarkFlagRequired("pair")
	return cmd
}

func (a *app) lexical(runID, pairID string) error {
	lexicons, err := a.cfg.Lexicons()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(lexicons))
	for _, lex := range lexicons {
		ids = append(ids, lex.ID())
	}
	snapshot := logging.StageSnapshot{RunID: runID, Stage: ledger.StageLexical, PairID: pairID, Lexicons: ids}

	return a.runStage(snapshot, func() (stageOutput, error) {
		records, err := a.store.ReadResponses(runID)
		if err != nil {
			return stageOutput{}, err
		}
		table, err := framing.Analyze(records, pairID, lexicons, a.logger)
		if err != nil {
			return stageOutput{counts: logging.StageCounts{Records: len(records)}}, err
		}
		if err := a.store.WriteLexical(runID, table); err != nil {
			return stageOutput{}, err
		}

		fmt.Fprintf(a.out, "%-24s %-12s %5s %9s %8s", "model", "group", "n", "words", "refusal")
		for _, lex := range lexicons {
			fmt.Fprintf(a.out, " %12s", lex.Name())
		}
		fmt.Fprintln(a.out)
		for _, s := range table.Summary {
			fmt.Fprintf(a.out, "%-24s %-12s %5d %9.1f %8.3f", s.Model, s.Group, s.Responses, s.MeanWords, s.RefusalRate)
			for _, lex := range lexicons {
				fmt.Fprintf(a.out, " %12.3f", s.MeanScores[lex.ID()])
			}
			fmt.Fprintln(a.out)
		}
		path := a.store.LexicalPath(pairID, runID)
		fmt.Fprintf(a.out, "  %s\n", path)

		return stageOutput{
			counts:    logging.StageCounts{Records: len(records), Rows: len(table.Rows)},
			artifacts: []string{path},
		}, nil
	})
}

// #endregion lexical

// #region sanity

func sanityCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "sanity",
		Short: "Informational sanity checks over run artifacts",
	}
	cmd.PersistentFlags().BoolVar(&strict, "strict", false, "Exit 1 when any check is flagged")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "raw <run_id>",
			Short: "Check the raw response log for empty, very short and absurdly long answers",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sanityRaw(args[0], strict)
			},
		},
		&cobra.Command{
			Use:   "metrics <run_id>",
			Short: "Check the metrics table for spread and gap availability",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.sanityMetrics(args[0], strict)
			},
		},
	)
	return cmd
}

func (a *app) sanitySnapshot(runID, stage string) logging.StageSnapshot {
	ec := a.cfg.EvalConfig()
	return logging.StageSnapshot{
		RunID:              runID,
		Stage:              stage,
		AbsurdWordCount:    ec.AbsurdWordCount,
		VeryShortWordCount: ec.VeryShortWordCount,
	}
}

func (a *app) sanityRaw(runID string, strict bool) error {
	return a.runStage(a.sanitySnapshot(runID, ledger.StageSanityRaw), func() (stageOutput, error) {
		records, err := a.store.ReadResponses(runID)
		if err != nil {
			return stageOutput{}, err
		}
		report, err := eval.NewEvalHarness(a.cfg.EvalConfig()).RunRaw(runID, records)
		if err != nil {
			return stageOutput{}, err
		}
		if err := a.printJSON(report); err != nil {
			return stageOutput{}, err
		}
		out := stageOutput{counts: logging.StageCounts{Records: report.Records, Flags: flagged(report.Result)}}
		return out, a.sanityOutcome(report.Result, strict)
	})
}

func (a *app) sanityMetrics(runID string, strict bool) error {
	return a.runStage(a.sanitySnapshot(runID, ledger.StageSanityMetrics), func() (stageOutput, error) {
		rows, err := a.store.ReadMetrics(runID)
		if err != nil {
			return stageOutput{}, err
		}
		report, err := eval.NewEvalHarness(a.cfg.EvalConfig()).RunMetrics(runID, rows)
		if err != nil {
			return stageOutput{}, err
		}
		if err := a.printJSON(report); err != nil {
			return stageOutput{}, err
		}
		out := stageOutput{counts: logging.StageCounts{Rows: report.Rows, Flags: flagged(report.Result)}}
		return out, a.sanityOutcome(report.Result, strict)
	})
}

// sanityOutcome logs the verdict. Flags only fail the stage under --strict.
func (a *app) sanityOutcome(result eval.EvalResult, strict bool) error {
	if result.Passed {
		a.logger.Info("sanity passed", "reason", result.Reason)
		return nil
	}
	a.logger.Warn("sanity flagged", "reason", result.Reason)
	if strict {
		return fmt.Errorf("%s", result.Reason)
	}
	return nil
}

func flagged(result eval.EvalResult) int {
	n := 0
	for _, m := range result.Metrics {
		if !m.Pass {
			n++
		}
	}
	return n
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion sanity
