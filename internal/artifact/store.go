// Package artifact reads and writes the per-run files every stage exchanges:
// the raw response log, the aggregate report, the metrics table, the insight
// documents and the lexical framing tables. Paths are derived from the run id
// alone, and every write is atomic.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
)

// Artifact kinds, used in MissingArtifactError.
const (
	KindRawResponses   = "raw responses"
	KindCollectionMeta = "collection meta"
	KindReport         = "report"
	KindMetrics        = "metrics"
	KindInsights       = "insights"
	KindLexical        = "lexical"
)

// Store resolves artifact paths under a runs directory and a reports directory.
type Store struct {
	RunsDir    string
	ReportsDir string
}

// NewStore creates a store rooted at the given directories.
func NewStore(runsDir, reportsDir string) *Store {
	return &Store{RunsDir: runsDir, ReportsDir: reportsDir}
}

// #region paths

// RawResponsesPath is <runs>/<run_id>/raw_responses.jsonl.
func (s *Store) RawResponsesPath(runID string) string {
	return filepath.Join(s.RunsDir, runID, "raw_responses.jsonl")
}

// CollectionMetaPath is <runs>/<run_id>/run_meta.json.
func (s *Store) CollectionMetaPath(runID string) string {
	return filepath.Join(s.RunsDir, runID, "run_meta.json")
}

// ReportPath is <reports>/report_questions_<run_id>.json.
func (s *Store) ReportPath(runID string) string {
	return filepath.Join(s.ReportsDir, "report_questions_"+runID+".json")
}

// MetricsPath is <reports>/metrics_questions_<run_id>.csv.
func (s *Store) MetricsPath(runID string) string {
	return filepath.Join(s.ReportsDir, "metrics_questions_"+runID+".csv")
}

// InsightsJSONPath is <reports>/top_insights_<run_id>.json.
func (s *Store) InsightsJSONPath(runID string) string {
	return filepath.Join(s.ReportsDir, "top_insights_"+runID+".json")
}

// InsightsMarkdownPath is <reports>/top_insights_<run_id>.md.
func (s *Store) InsightsMarkdownPath(runID string) string {
	return filepath.Join(s.ReportsDir, "top_insights_"+runID+".md")
}

// LexicalPath is <reports>/lexical_<pair_id>_<run_id>.csv.
func (s *Store) LexicalPath(pairID, runID string) string {
	return filepath.Join(s.ReportsDir, "lexical_"+pairID+"_"+runID+".csv")
}

// #endregion paths

// #region discovery

const reportPrefix = "report_questions_"

// ListRuns returns the run ids that have an aggregate report, newest first.
// Run ids embed a sortable timestamp, so reverse lexical order is recency.
func (s *Store) ListRuns() ([]string, error) {
	if _, err := os.Stat(s.ReportsDir); os.IsNotExist(err) {
		return []string{}, nil
	}
	matches, err := doublestar.Glob(os.DirFS(s.ReportsDir), reportPrefix+"*.json")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		if id := strings.TrimPrefix(name, reportPrefix); id != "" {
			runs = append(runs, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return runs, nil
}

// #endregion discovery

// openRead opens path, mapping a missing file to MissingArtifactError.
func openRead(kind, path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &audit.MissingArtifactError{Kind: kind, Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", kind, err)
	}
	return f, nil
}

// readFile reads path whole, mapping a missing file to MissingArtifactError.
func readFile(kind, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &audit.MissingArtifactError{Kind: kind, Path: path}
		}
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return data, nil
}
