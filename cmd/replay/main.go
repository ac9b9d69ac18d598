package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/artifact"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/config"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	runID := flag.String("run", "", "run id to re-derive from its raw log (run mode)")
	runsDir := flag.String("runs-dir", "runs", "runs directory (run mode)")
	reportsDir := flag.String("reports-dir", "reports", "reports directory (run mode)")
	configPath := flag.String("config", "", "YAML config supplying ranking weights (run mode)")
	flag.Parse()

	if (*fixturePath == "" && *runID == "") || (*fixturePath != "" && *runID != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --run run_id [--runs-dir d] [--reports-dir d] [--config f]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runArtifactMode(artifact.NewStore(*runsDir, *reportsDir), *runID, *configPath)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region artifact-mode

// runArtifactMode recomputes a run from its raw log and compares the result
// with the report and insights currently on disk.
func runArtifactMode(store *artifact.Store, runID, configPath string) int {
	records, err := store.ReadResponses(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read responses: %v\n", err)
		return 2
	}
	report, err := store.ReadReport(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read report: %v\n", err)
		return 2
	}
	set, err := store.ReadInsights(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read insights: %v\n", err)
		return 2
	}

	rc := replay.DefaultReplayConfig()
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			return 2
		}
		rc.RankConfig = cfg.RankConfig()
	}
	// Thresholds recorded in the artifacts win over config.
	rc.AggregateConfig.ShortResponseThreshold = report.Meta.ShortResponseThreshold
	if len(set.Top) > 0 {
		rc.RankConfig.TopK = len(set.Top)
	}

	f := replay.BuildFixture("artifact replay", records, report, set, rc)
	return replayAndPrint(f)
}

// #endregion artifact-mode

// #region output

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return replayAndPrint(f)
}

// replayAndPrint outputs a comparison table and returns the exit code.
func replayAndPrint(f *replay.Fixture) int {
	outcome, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	fmt.Printf("%-28s| %-9s| %s\n", "Check", "Result", "Detail")
	fmt.Printf("%-28s+%-10s+%s\n", "----------------------------", "----------", "--------------------")
	for _, r := range outcome.Results {
		fmt.Printf("%-28s| %-9s| %s\n", r.Check, r.Action, r.Reason)
	}

	s := replay.Summarize(outcome.Results)
	fmt.Printf("\nSummary: %d total, %d match, %d mismatch, %d missing\n",
		s.TotalChecks, s.Matches, s.Mismatches, s.Missing)

	if s.Drifted() {
		return 1
	}
	return 0
}

// #endregion output
