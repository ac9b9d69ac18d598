// Package config provides configuration loading and management for the auditor.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/aggregate"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/eval"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/insight"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/textmetrics"
)

// Config represents the complete auditor configuration
type Config struct {
	Paths   PathsConfig     `yaml:"paths"`
	Audit   AuditConfig     `yaml:"audit"`
	Ranking RankingConfig   `yaml:"ranking"`
	Sanity  SanityConfig    `yaml:"sanity"`
	Lexicon []LexiconConfig `yaml:"lexicons"`
}

// PathsConfig locates artifacts and the stage ledger
type PathsConfig struct {
	// RunsDir holds one directory per run with raw_responses.jsonl
	RunsDir string `yaml:"runs_dir"`
	// ReportsDir receives every derived artifact
	ReportsDir string `yaml:"reports_dir"`
	// Ledger is the SQLite stage ledger path (empty = disabled)
	Ledger string `yaml:"ledger"`
}

// AuditConfig configures aggregation
type AuditConfig struct {
	// ShortResponseThreshold marks answers with fewer words as short (default: 50)
	ShortResponseThreshold int `yaml:"short_response_threshold"`
}

// RankingConfig configures the insight ranker
type RankingConfig struct {
	TopK    int             `yaml:"top_k"`
	Weights insight.Weights `yaml:"weights"`
}

// SanityConfig configures the sanity checks
type SanityConfig struct {
	AbsurdWordCount    int `yaml:"absurd_word_count"`
	VeryShortWordCount int `yaml:"very_short_word_count"`
}

// LexiconConfig is one versioned term list
type LexiconConfig struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	Terms   []string `yaml:"terms"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	lexicons := make([]LexiconConfig, 0, 2)
	for _, lex := range textmetrics.DefaultLexicons() {
		lexicons = append(lexicons, LexiconConfig{
			Name:    lex.Name(),
			Version: lex.Version(),
			Terms:   lex.Terms(),
		})
	}
	sanity := eval.DefaultEvalConfig()
	return &Config{
		Paths: PathsConfig{
			RunsDir:    "runs",
			ReportsDir: "reports",
			Ledger:     "", // Disabled
		},
		Audit: AuditConfig{
			ShortResponseThreshold: aggregate.DefaultConfig().ShortResponseThreshold,
		},
		Ranking: RankingConfig{
			TopK:    insight.DefaultConfig().TopK,
			Weights: insight.DefaultWeights(),
		},
		Sanity: SanityConfig{
			AbsurdWordCount:    sanity.AbsurdWordCount,
			VeryShortWordCount: sanity.VeryShortWordCount,
		},
		Lexicon: lexicons,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Paths.RunsDir == "" {
		return fmt.Errorf("paths.runs_dir is required")
	}
	if c.Paths.ReportsDir == "" {
		return fmt.Errorf("paths.reports_dir is required")
	}
	if err := c.AggregateConfig().Validate(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := c.RankConfig().Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if c.Sanity.AbsurdWordCount <= 0 {
		return fmt.Errorf("sanity.absurd_word_count must be positive")
	}
	if c.Sanity.VeryShortWordCount <= 0 {
		return fmt.Errorf("sanity.very_short_word_count must be positive")
	}
	if _, err := c.Lexicons(); err != nil {
		return err
	}
	return nil
}

// AggregateConfig projects the aggregation settings.
func (c *Config) AggregateConfig() aggregate.Config {
	return aggregate.Config{ShortResponseThreshold: c.Audit.ShortResponseThreshold}
}

// RankConfig projects the ranking settings.
func (c *Config) RankConfig() insight.Config {
	return insight.Config{TopK: c.Ranking.TopK, Weights: c.Ranking.Weights}
}

// EvalConfig projects the sanity thresholds.
func (c *Config) EvalConfig() eval.EvalConfig {
	return eval.EvalConfig{
		AbsurdWordCount:    c.Sanity.AbsurdWordCount,
		VeryShortWordCount: c.Sanity.VeryShortWordCount,
	}
}

// Lexicons converts the configured term lists into immutable lexicons.
// Lexicon ids must be unique.
func (c *Config) Lexicons() ([]textmetrics.Lexicon, error) {
	if len(c.Lexicon) == 0 {
		return nil, fmt.Errorf("lexicons: at least one lexicon is required")
	}
	seen := make(map[string]bool, len(c.Lexicon))
	out := make([]textmetrics.Lexicon, 0, len(c.Lexicon))
	for _, lc := range c.Lexicon {
		lex, err := textmetrics.NewLexicon(lc.Name, lc.Version, lc.Terms)
		if err != nil {
			return nil, fmt.Errorf("lexicons: %w", err)
		}
		if seen[lex.ID()] {
			return nil, fmt.Errorf("lexicons: duplicate lexicon %s", lex.ID())
		}
		seen[lex.ID()] = true
		out = append(out, lex)
	}
	return out, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	layer, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	config.Merge(layer)
	return config, nil
}

// parseFile decodes a YAML file into a zero Config, so only keys present in
// the file are set.
func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Paths
	if other.Paths.RunsDir != "" {
		c.Paths.RunsDir = other.Paths.RunsDir
	}
	if other.Paths.ReportsDir != "" {
		c.Paths.ReportsDir = other.Paths.ReportsDir
	}
	if other.Paths.Ledger != "" {
		c.Paths.Ledger = other.Paths.Ledger
	}

	// Audit
	if other.Audit.ShortResponseThreshold != 0 {
		c.Audit.ShortResponseThreshold = other.Audit.ShortResponseThreshold
	}

	// Ranking; weights are replaced as a set so they keep summing to 1
	if other.Ranking.TopK != 0 {
		c.Ranking.TopK = other.Ranking.TopK
	}
	if other.Ranking.Weights != (insight.Weights{}) {
		c.Ranking.Weights = other.Ranking.Weights
	}

	// Sanity
	if other.Sanity.AbsurdWordCount != 0 {
		c.Sanity.AbsurdWordCount = other.Sanity.AbsurdWordCount
	}
	if other.Sanity.VeryShortWordCount != 0 {
		c.Sanity.VeryShortWordCount = other.Sanity.VeryShortWordCount
	}

	// Lexicons
	if len(other.Lexicon) > 0 {
		c.Lexicon = other.Lexicon
	}
}
