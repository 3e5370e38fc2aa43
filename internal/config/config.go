package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	IndexDriverPostgres = "postgres"
	IndexDriverMemory   = "memory"

	EmbedderDriverHashvec = "hashvec"
	EmbedderDriverOpenAI  = "openai"

	SentimentDriverLexicon = "lexicon"
	SentimentDriverOpenAI  = "openai"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Env   string `envconfig:"ENV" default:"production"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	IndexDriver string `envconfig:"INDEX_DRIVER" default:"postgres"`

	EmbedderDriver      string `envconfig:"EMBEDDER_DRIVER" default:"hashvec"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"256"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	SentimentDriver     string `envconfig:"SENTIMENT_DRIVER" default:"lexicon"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"finsight-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// APIKey, when set, gates the HTTP API behind a static bearer key.
	APIKey string `envconfig:"API_KEY"`

	DefaultK        int           `envconfig:"DEFAULT_K" default:"10"`
	RiskWindowDays  int           `envconfig:"RISK_WINDOW_DAYS" default:"365"`
	RiskFreeRate    float64       `envconfig:"RISK_FREE_RATE" default:"0.0"`
	BenchmarkSymbol string        `envconfig:"BENCHMARK_SYMBOL" default:"SPY"`
	EmbedWorkers    int           `envconfig:"EMBED_WORKERS" default:"4"`
	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	SearchTimeout   time.Duration `envconfig:"SEARCH_TIMEOUT" default:"10s"`
	QueryTimeout    time.Duration `envconfig:"QUERY_TIMEOUT" default:"60s"`

	// RetentionDays of 0 disables index pruning.
	RetentionDays     int           `envconfig:"RETENTION_DAYS" default:"0"`
	RetentionInterval time.Duration `envconfig:"RETENTION_INTERVAL" default:"1h"`

	SynthesisConfigPath string `envconfig:"SYNTHESIS_CONFIG"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("FINSIGHT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks driver names and their cross-field requirements.
func (c *Config) Validate() error {
	switch c.IndexDriver {
	case IndexDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("FINSIGHT_DATABASE_URL is required with the postgres index driver")
		}
	case IndexDriverMemory:
	default:
		return fmt.Errorf("index driver is invalid: %s", c.IndexDriver)
	}

	switch c.EmbedderDriver {
	case EmbedderDriverHashvec:
	case EmbedderDriverOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("FINSIGHT_OPENAI_API_KEY is required with the openai embedder")
		}
	default:
		return fmt.Errorf("embedder driver is invalid: %s", c.EmbedderDriver)
	}

	switch c.SentimentDriver {
	case SentimentDriverLexicon:
	case SentimentDriverOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("FINSIGHT_OPENAI_API_KEY is required with the openai sentiment driver")
		}
	default:
		return fmt.Errorf("sentiment driver is invalid: %s", c.SentimentDriver)
	}

	if c.DefaultK <= 0 {
		return fmt.Errorf("default k must be positive")
	}
	if c.RiskWindowDays <= 0 {
		return fmt.Errorf("risk window days must be positive")
	}
	if c.EmbedWorkers <= 0 {
		return fmt.Errorf("embed workers must be positive")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
