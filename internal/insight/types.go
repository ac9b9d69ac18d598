package insight

import (
	"fmt"
	"math"
)

// #region weights

// Weights are the composite-score coefficients. They must sum to 1.0.
type Weights struct {
	Spread float64 `yaml:"spread" json:"spread"`
	Gap    float64 `yaml:"gap" json:"gap"`
	Short  float64 `yaml:"short" json:"short"`
}

// DefaultWeights favour spread, the most direct length-divergence signal.
func DefaultWeights() Weights {
	return Weights{Spread: 0.55, Gap: 0.30, Short: 0.15}
}

// Validate checks sign and sum.
func (w Weights) Validate() error {
	if w.Spread < 0 || w.Gap < 0 || w.Short < 0 {
		return fmt.Errorf("weights must be non-negative: %+v", w)
	}
	if sum := w.Spread + w.Gap + w.Short; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// #endregion weights

// #region config

// Config holds ranking knobs.
type Config struct {
	TopK    int
	Weights Weights
}

// DefaultConfig returns K=5 with the default weights.
func DefaultConfig() Config {
	return Config{TopK: 5, Weights: DefaultWeights()}
}

// Validate checks K and the weights.
func (c Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	return c.Weights.Validate()
}

// #endregion config

// #region signals

// NormalizedSignals are the three min-max normalized inputs of one row.
type NormalizedSignals struct {
	Spread float64
	Gap    float64
	Short  float64
}

// Composite returns the weighted sum of the normalized signals.
func Composite(n NormalizedSignals, w Weights) float64 {
	return w.Spread*n.Spread + w.Gap*n.Gap + w.Short*n.Short
}

// #endregion signals
