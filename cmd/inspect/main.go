package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/ledger"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/logging"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the stage ledger")
	last := flag.Int("last", 20, "show N most recent stage executions")
	stageID := flag.String("stage", "", "show single stage execution detail")
	runID := flag.String("run", "", "filter list to one run id")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/ledger.db [--last N] [--run id] [--stage id] [--json]")
		os.Exit(2)
	}

	store, err := ledger.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *stageID != "" {
		err = runDetailMode(store, *stageID, *jsonOut)
	} else {
		err = runListMode(store, *last, *runID, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		store.Close()
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	StageID   string `json:"stage_id"`
	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	Decision  string `json:"decision,omitempty"`
	Duration  string `json:"duration,omitempty"`
	StartedAt string `json:"started_at"`
	Reason    string `json:"reason,omitempty"`
}

func runListMode(store *ledger.Store, last int, runFilter string, jsonOut bool) error {
	stages, err := store.ListStagesWithProvenance(last)
	if err != nil {
		return err
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, 0, len(stages))
	for i := len(stages) - 1; i >= 0; i-- {
		sp := stages[i]
		if runFilter != "" && sp.RunID != runFilter {
			continue
		}
		lr := listRow{
			StageID:   sp.StageID,
			RunID:     sp.RunID,
			Stage:     sp.Stage,
			Status:    sp.Status,
			Decision:  sp.Decision,
			StartedAt: sp.StartedAt.Format("2006-01-02T15:04:05Z"),
			Reason:    sp.Reason,
		}
		if sp.Finished() && !sp.FinishedAt.IsZero() {
			lr.Duration = sp.FinishedAt.Sub(sp.StartedAt).String()
		}
		rows = append(rows, lr)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no stage executions found")
		return nil
	}

	if jsonOut {
		return printJSON(rows)
	}
	printListTable(rows)
	return nil
}

func printListTable(rows []listRow) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-10s  %-24s  %-14s  %-9s  %-8s  %-10s  %s",
		"Stage ID", "Run", "Stage", "Status", "Decision", "Duration", "Started")))
	fmt.Println(dimStyle.Render(strings.Repeat("-", 100)))

	for _, r := range rows {
		line := fmt.Sprintf("%-10s  %-24s  %-14s  %-9s  %-8s  %-10s  %s",
			shortID(r.StageID), r.RunID, r.Stage, r.Status, orDash(r.Decision), orDash(r.Duration), r.StartedAt)
		if r.Status == ledger.StatusFailed {
			line = failedStyle.Render(line)
		}
		fmt.Println(line)
		if r.Reason != "" {
			fmt.Println(dimStyle.Render("            " + r.Reason))
		}
	}
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	ledger.StageWithProvenance
	Config    *logging.StageSnapshot `json:"config,omitempty"`
	Counts    *logging.StageCounts   `json:"counts,omitempty"`
	Artifacts []string               `json:"artifact_paths,omitempty"`
}

func runDetailMode(store *ledger.Store, stageID string, jsonOut bool) error {
	sp, err := findStage(store, stageID)
	if err != nil {
		return err
	}

	out := detailOutput{StageWithProvenance: sp}
	if sp.ConfigJSON != "" {
		var snap logging.StageSnapshot
		if err := json.Unmarshal([]byte(sp.ConfigJSON), &snap); err == nil {
			out.Config = &snap
		}
	}
	if sp.CountsJSON != "" {
		var counts logging.StageCounts
		if err := json.Unmarshal([]byte(sp.CountsJSON), &counts); err == nil {
			out.Counts = &counts
		}
	}
	if sp.Artifacts != "" {
		out.Artifacts = strings.Split(sp.Artifacts, ",")
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Println(headerStyle.Render("Stage " + sp.StageID))
	fmt.Printf("Run:       %s\n", sp.RunID)
	fmt.Printf("Stage:     %s\n", sp.Stage)
	fmt.Printf("Status:    %s\n", sp.Status)
	fmt.Printf("Started:   %s\n", sp.StartedAt.Format("2006-01-02T15:04:05Z"))
	if !sp.FinishedAt.IsZero() {
		fmt.Printf("Finished:  %s\n", sp.FinishedAt.Format("2006-01-02T15:04:05Z"))
	}
	fmt.Printf("Decision:  %s\n", orDash(sp.Decision))
	if sp.Reason != "" {
		fmt.Printf("Reason:    %s\n", sp.Reason)
	}

	if out.Config != nil {
		fmt.Printf("\nConfig:\n")
		printSnapshot(out.Config)
	}
	if out.Counts != nil {
		c := out.Counts
		fmt.Printf("\nCounts:\n")
		fmt.Printf("  records=%d questions=%d dropped=%d rows=%d insights=%d flags=%d\n",
			c.Records, c.Questions, c.Dropped, c.Rows, c.Insights, c.Flags)
	}
	if len(out.Artifacts) > 0 {
		fmt.Printf("\nArtifacts:\n")
		for _, a := range out.Artifacts {
			fmt.Printf("  %s\n", a)
		}
	}
	return nil
}

// findStage resolves a full stage id or a unique prefix of one, as printed
// by list mode.
func findStage(store *ledger.Store, id string) (ledger.StageWithProvenance, error) {
	stages, err := store.ListStagesWithProvenance(-1)
	if err != nil {
		return ledger.StageWithProvenance{}, err
	}
	var match []ledger.StageWithProvenance
	for _, sp := range stages {
		if sp.StageID == id {
			return sp, nil
		}
		if strings.HasPrefix(sp.StageID, id) {
			match = append(match, sp)
		}
	}
	switch len(match) {
	case 0:
		return ledger.StageWithProvenance{}, fmt.Errorf("stage %s: %w", id, ledger.ErrStageNotFound)
	case 1:
		return match[0], nil
	default:
		return ledger.StageWithProvenance{}, fmt.Errorf("stage prefix %s is ambiguous (%d matches)", id, len(match))
	}
}

func printSnapshot(s *logging.StageSnapshot) {
	if s.ShortResponseThreshold != 0 {
		fmt.Printf("  short_response_threshold: %d\n", s.ShortResponseThreshold)
	}
	if s.TopK != 0 {
		fmt.Printf("  top_k: %d\n", s.TopK)
	}
	if s.Weights != nil {
		fmt.Printf("  weights: spread=%.2f gap=%.2f short=%.2f\n", s.Weights.Spread, s.Weights.Gap, s.Weights.Short)
	}
	if s.PairID != "" {
		fmt.Printf("  pair_id: %s\n", s.PairID)
	}
	if len(s.Lexicons) > 0 {
		fmt.Printf("  lexicons: %s\n", strings.Join(s.Lexicons, ", "))
	}
	if s.AbsurdWordCount != 0 || s.VeryShortWordCount != 0 {
		fmt.Printf("  absurd_word_count: %d\n  very_short_word_count: %d\n", s.AbsurdWordCount, s.VeryShortWordCount)
	}
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// #endregion output
