package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ActionWeights blend the quantitative and qualitative signals into the
// recommendation score.
type ActionWeights struct {
	Trend     float64 `yaml:"trend" validate:"gte=0,lte=1"`
	Sharpe    float64 `yaml:"sharpe" validate:"gte=0,lte=1"`
	Sentiment float64 `yaml:"sentiment" validate:"gte=0,lte=1"`
}

// SynthesisConfig tunes how insights are put together: action scoring,
// volatility banding, confidence requirements and retrieval recency boost.
// Loaded from YAML; zero fields fall back to defaults.
type SynthesisConfig struct {
	Weights ActionWeights `yaml:"weights" validate:"required"`

	// Score cutoffs: above buy -> BUY, below sell -> SELL, otherwise HOLD.
	BuyThreshold  float64 `yaml:"buy_threshold" validate:"gt=0,lte=1"`
	SellThreshold float64 `yaml:"sell_threshold" validate:"gte=-1,lt=0"`

	// Annualized volatility bands for the risk level.
	LowVolatility  float64 `yaml:"low_volatility" validate:"gt=0"`
	HighVolatility float64 `yaml:"high_volatility" validate:"gtfield=LowVolatility"`

	// Minimum supporting chunks before confidence can be high.
	MinChunksHighConfidence int `yaml:"min_chunks_high_confidence" validate:"gte=1"`

	// Linear recency boost applied during re-ranking.
	RecencyBoostDays int     `yaml:"recency_boost_days" validate:"gte=0"`
	RecencyBoostMax  float64 `yaml:"recency_boost_max" validate:"gte=0,lte=1"`

	// Feeds maps a symbol to the news feeds polled on refresh.
	Feeds map[string][]string `yaml:"feeds"`
}

// DefaultSynthesisConfig returns the built-in synthesis tuning.
func DefaultSynthesisConfig() *SynthesisConfig {
	return &SynthesisConfig{
		Weights:                 ActionWeights{Trend: 0.45, Sharpe: 0.25, Sentiment: 0.30},
		BuyThreshold:            0.15,
		SellThreshold:           -0.15,
		LowVolatility:           0.15,
		HighVolatility:          0.35,
		MinChunksHighConfidence: 3,
		RecencyBoostDays:        30,
		RecencyBoostMax:         0.10,
	}
}

// LoadSynthesis reads the synthesis config from path. An empty path or a
// missing file yields the defaults; a present file is merged over them and
// validated.
func LoadSynthesis(path string) (*SynthesisConfig, error) {
	cfg := DefaultSynthesisConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading synthesis config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing synthesis config: %w", err)
	}
	applySynthesisDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid synthesis config: %w", err)
	}
	return cfg, nil
}

// Validate validates the config using go-playground/validator.
func (c *SynthesisConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func applySynthesisDefaults(cfg *SynthesisConfig) {
	def := DefaultSynthesisConfig()
	if cfg.Weights == (ActionWeights{}) {
		cfg.Weights = def.Weights
	}
	if cfg.BuyThreshold == 0 {
		cfg.BuyThreshold = def.BuyThreshold
	}
	if cfg.SellThreshold == 0 {
		cfg.SellThreshold = def.SellThreshold
	}
	if cfg.LowVolatility == 0 {
		cfg.LowVolatility = def.LowVolatility
	}
	if cfg.HighVolatility == 0 {
		cfg.HighVolatility = def.HighVolatility
	}
	if cfg.MinChunksHighConfidence == 0 {
		cfg.MinChunksHighConfidence = def.MinChunksHighConfidence
	}
	if cfg.RecencyBoostDays == 0 {
		cfg.RecencyBoostDays = def.RecencyBoostDays
	}
	if cfg.RecencyBoostMax == 0 {
		cfg.RecencyBoostMax = def.RecencyBoostMax
	}
}
