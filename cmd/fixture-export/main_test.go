package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/aggregate"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/artifact"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/insight"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/ledger"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/replay"
)

// seedRun writes the raw log, report, metrics and insights of a two-question run.
func seedRun(t *testing.T, store *artifact.Store, runID string, topK int) {
	t.Helper()
	for qid, counts := range map[string][]int{"Q1": {10, 15, 60}, "Q2": {5, 6, 7}} {
		for i, model := range []string{"A", "B", "C"} {
			require.NoError(t, store.AppendResponse(runID, audit.ResponseRecord{
				RunID:      runID,
				QuestionID: qid,
				Model:      model,
				Section:    "s_" + qid,
				Answer:     strings.TrimSpace(strings.Repeat("word ", counts[i])),
			}))
		}
	}
	records, err := store.ReadResponses(runID)
	require.NoError(t, err)
	result, err := aggregate.NewAggregator(aggregate.DefaultConfig(), nil).Aggregate(runID, records)
	require.NoError(t, err)
	require.NoError(t, store.WriteAggregate(result.Report, result.Rows))

	rc := insight.DefaultConfig()
	rc.TopK = topK
	set, err := insight.NewRanker(rc, nil).Rank(result.Rows, result.Report)
	require.NoError(t, err)
	require.NoError(t, store.WriteInsights(set))
}

func TestApplyLedgerSettings(t *testing.T) {
	tests := []struct {
		name    string
		record  func(t *testing.T, s *ledger.Store)
		wantErr string
		topK    int
		weights insight.Weights
	}{
		{
			name:    "no rank stage keeps defaults",
			record:  func(t *testing.T, s *ledger.Store) {},
			topK:    insight.DefaultConfig().TopK,
			weights: insight.DefaultWeights(),
		},
		{
			name: "succeeded stage supplies top_k and weights",
			record: func(t *testing.T, s *ledger.Store) {
				rec, err := s.BeginStage("run1", ledger.StageRank,
					`{"run_id":"run1","stage":"rank","top_k":3,"weights":{"spread":0.5,"gap":0.25,"short":0.25}}`)
				require.NoError(t, err)
				require.NoError(t, s.FinishStage(rec.StageID, ledger.StatusSucceeded, `{"insights":2}`))
			},
			topK:    3,
			weights: insight.Weights{Spread: 0.5, Gap: 0.25, Short: 0.25},
		},
		{
			name: "other runs are ignored",
			record: func(t *testing.T, s *ledger.Store) {
				rec, err := s.BeginStage("run2", ledger.StageRank, `{"top_k":9}`)
				require.NoError(t, err)
				require.NoError(t, s.FinishStage(rec.StageID, ledger.StatusSucceeded, ""))
			},
			topK:    insight.DefaultConfig().TopK,
			weights: insight.DefaultWeights(),
		},
		{
			name: "failed stage is an error",
			record: func(t *testing.T, s *ledger.Store) {
				rec, err := s.BeginStage("run1", ledger.StageRank, `{"top_k":3}`)
				require.NoError(t, err)
				require.NoError(t, s.FinishStage(rec.StageID, ledger.StatusFailed, ""))
			},
			wantErr: "is failed",
		},
		{
			name: "unfinished stage is an error",
			record: func(t *testing.T, s *ledger.Store) {
				_, err := s.BeginStage("run1", ledger.StageRank, `{"top_k":3}`)
				require.NoError(t, err)
			},
			wantErr: "is " + ledger.StatusRunning,
		},
		{
			name: "unparseable config is an error",
			record: func(t *testing.T, s *ledger.Store) {
				rec, err := s.BeginStage("run1", ledger.StageRank, `{not json`)
				require.NoError(t, err)
				require.NoError(t, s.FinishStage(rec.StageID, ledger.StatusSucceeded, ""))
			},
			wantErr: "parse stage config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.db")
			s, err := ledger.NewStore(path)
			require.NoError(t, err)
			tt.record(t, s)
			require.NoError(t, s.Close())

			config := replay.DefaultReplayConfig()
			err = applyLedgerSettings(path, "run1", &config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.topK, config.RankConfig.TopK)
			assert.Equal(t, tt.weights, config.RankConfig.Weights)
		})
	}
}

func TestRunExportsReplayableFixture(t *testing.T) {
	root := t.TempDir()
	store := artifact.NewStore(filepath.Join(root, "runs"), filepath.Join(root, "reports"))
	seedRun(t, store, "run1", 1)
	out := filepath.Join(root, "fixtures", "run1.json")

	require.NoError(t, run(store, "run1", "", out))

	f, err := replay.LoadFixture(out)
	require.NoError(t, err)
	assert.Len(t, f.Records, 6)
	assert.Equal(t, []string{"Q1"}, f.ExpectedTop)
	assert.Equal(t, 1, f.Config.TopK)

	outcome, err := replay.Replay(f)
	require.NoError(t, err)
	assert.False(t, replay.Summarize(outcome.Results).Drifted())
}

func TestRunMissingInsights(t *testing.T) {
	root := t.TempDir()
	store := artifact.NewStore(filepath.Join(root, "runs"), filepath.Join(root, "reports"))
	require.NoError(t, store.AppendResponse("run1", audit.ResponseRecord{QuestionID: "Q1", Model: "A", Answer: "x"}))

	err := run(store, "run1", "", filepath.Join(root, "out.json"))
	require.Error(t, err)
	assert.True(t, audit.IsMissingArtifact(err))
}
