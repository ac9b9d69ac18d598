package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/aggregate"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/insight"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a pipeline regression fixture.
type Fixture struct {
	Description       string                    `json:"description"`
	RunID             string                    `json:"run_id"`
	Config            FixtureConfig             `json:"config"`
	Records           []audit.ResponseRecord    `json:"records"`
	ExpectedQuestions []FixtureExpectedQuestion `json:"expected_questions"`
	ExpectedTop       []string                  `json:"expected_top"`
}

// FixtureConfig mirrors the aggregation and ranking knobs with JSON tags.
type FixtureConfig struct {
	ShortResponseThreshold int             `json:"short_response_threshold"`
	TopK                   int             `json:"top_k"`
	Weights                insight.Weights `json:"weights"`
}

// FixtureExpectedQuestion pins the divergence metrics of one question.
type FixtureExpectedQuestion struct {
	QuestionID          string   `json:"question_id"`
	SpreadWords         int      `json:"spread_words"`
	GapRatio            *float64 `json:"gap_ratio"`
	ShortestModel       string   `json:"shortest_model"`
	LongestModel        string   `json:"longest_model"`
	ShortResponseModels []string `json:"short_response_models"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes f as indented JSON, creating parent directories.
func SaveFixture(f *Fixture, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create fixture dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig. Zero
// fields fall back to the defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	config := DefaultReplayConfig()
	if fc.ShortResponseThreshold != 0 {
		config.AggregateConfig.ShortResponseThreshold = fc.ShortResponseThreshold
	}
	if fc.TopK != 0 {
		config.RankConfig.TopK = fc.TopK
	}
	if fc.Weights != (insight.Weights{}) {
		config.RankConfig.Weights = fc.Weights
	}
	return config
}

// #endregion fixture-loader

// #region fixture-builder

// BuildFixture captures the current behaviour of the pipeline on records as
// a fixture: per-question metrics from report and ranked ids from set.
func BuildFixture(description string, records []audit.ResponseRecord, report *audit.Report, set *audit.InsightSet, config ReplayConfig) *Fixture {
	questions := make([]FixtureExpectedQuestion, 0, len(report.Questions))
	qids := make([]string, 0, len(report.Questions))
	for qid := range report.Questions {
		qids = append(qids, qid)
	}
	sort.Strings(qids)
	for _, qid := range qids {
		m := report.Questions[qid].Metrics
		questions = append(questions, FixtureExpectedQuestion{
			QuestionID:          qid,
			SpreadWords:         m.SpreadWords,
			GapRatio:            m.GapRatio,
			ShortestModel:       m.ShortestModel,
			LongestModel:        m.LongestModel,
			ShortResponseModels: m.ShortResponseModels,
		})
	}

	top := make([]string, 0)
	if set != nil {
		for _, ins := range set.Top {
			top = append(top, ins.QuestionID)
		}
	}

	return &Fixture{
		Description: description,
		RunID:       report.Meta.RunID,
		Config: FixtureConfig{
			ShortResponseThreshold: config.AggregateConfig.ShortResponseThreshold,
			TopK:                   config.RankConfig.TopK,
			Weights:                config.RankConfig.Weights,
		},
		Records:           records,
		ExpectedQuestions: questions,
		ExpectedTop:       top,
	}
}

// DefaultReplayConfig returns the standard aggregation and ranking configs.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		AggregateConfig: aggregate.DefaultConfig(),
		RankConfig:      insight.DefaultConfig(),
	}
}

// #endregion fixture-builder
