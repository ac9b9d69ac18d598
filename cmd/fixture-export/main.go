package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/artifact"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/insight"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/ledger"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/logging"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/replay"
)

// #region main

func main() {
	runID := flag.String("run", "", "run id to export")
	runsDir := flag.String("runs-dir", "runs", "runs directory")
	reportsDir := flag.String("reports-dir", "reports", "reports directory")
	ledgerPath := flag.String("ledger", "", "stage ledger to read ranking settings from (optional)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *runID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --run run_id --out path/to/fixture.json [--runs-dir d] [--reports-dir d] [--ledger path]")
		os.Exit(2)
	}

	if err := run(artifact.NewStore(*runsDir, *reportsDir), *runID, *ledgerPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(store *artifact.Store, runID, ledgerPath, outPath string) error {
	records, err := store.ReadResponses(runID)
	if err != nil {
		return fmt.Errorf("read responses: %w", err)
	}
	report, err := store.ReadReport(runID)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	set, err := store.ReadInsights(runID)
	if err != nil {
		return fmt.Errorf("read insights: %w", err)
	}

	config := replay.DefaultReplayConfig()
	config.AggregateConfig.ShortResponseThreshold = report.Meta.ShortResponseThreshold
	if len(set.Top) > 0 {
		config.RankConfig.TopK = len(set.Top)
	}
	if ledgerPath != "" {
		if err := applyLedgerSettings(ledgerPath, runID, &config); err != nil {
			return err
		}
	}

	fmt.Printf("Found %d records, %d questions, %d insights\n", len(records), len(report.Questions), len(set.Top))

	fixture := replay.BuildFixture(
		fmt.Sprintf("Run export: %s (%d records, %d questions)", runID, len(records), len(report.Questions)),
		records, report, set, config)

	return writeFixture(fixture, outPath)
}

// applyLedgerSettings copies the top_k and weights of the run's latest
// successful rank stage into config.
func applyLedgerSettings(path, runID string, config *replay.ReplayConfig) error {
	store, err := ledger.NewStore(path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	rec, err := store.LatestStage(runID, ledger.StageRank)
	if errors.Is(err, ledger.ErrStageNotFound) {
		fmt.Fprintf(os.Stderr, "no rank stage for %s in ledger, using defaults\n", runID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("latest rank stage: %w", err)
	}
	if rec.Status != ledger.StatusSucceeded {
		return fmt.Errorf("latest rank stage for %s is %s", runID, rec.Status)
	}

	var snap logging.StageSnapshot
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &snap); err != nil {
		return fmt.Errorf("parse stage config: %w", err)
	}
	if snap.TopK > 0 {
		config.RankConfig.TopK = snap.TopK
	}
	if snap.Weights != nil {
		config.RankConfig.Weights = insight.Weights{
			Spread: snap.Weights.Spread,
			Gap:    snap.Weights.Gap,
			Short:  snap.Weights.Short,
		}
	}
	return nil
}

// #endregion extract

// #region output

func writeFixture(fixture *replay.Fixture, outPath string) error {
	if err := replay.SaveFixture(fixture, outPath); err != nil {
		return err
	}
	fmt.Printf("Wrote fixture to %s (%d records, %d expected questions, top %d)\n",
		outPath, len(fixture.Records), len(fixture.ExpectedQuestions), len(fixture.ExpectedTop))
	return nil
}

// #endregion output
