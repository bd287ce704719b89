// Package config defines service configuration and how it is loaded.
package config

import (
	"runtime"
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
)

// Similarity providers.
const (
	ProviderLexical = "lexical"
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderNone    = "none"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format" validate:"oneof=text console json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the in-memory call queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// WorkerCount sets the number of scoring workers; 0 means one per CPU.
	WorkerCount int `koanf:"worker_count" validate:"gte=0"`

	// DedupeSize bounds how many call IDs are remembered; 0 disables eviction.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// MaxReviewLimit caps GET /review?limit.
	MaxReviewLimit int `koanf:"max_review_limit" validate:"gte=1"`

	FuzzyThreshold             int     `koanf:"fuzzy_threshold" validate:"gte=0,lte=100"`
	SemanticThreshold          float64 `koanf:"semantic_threshold" validate:"gte=0,lte=1"`
	KeywordConfidenceThreshold float64 `koanf:"keyword_confidence_threshold" validate:"gte=0,lte=1"`

	// SemanticTimeoutMS bounds semantic scoring per call; 0 disables the bound.
	SemanticTimeoutMS int `koanf:"semantic_timeout_ms" validate:"gte=0"`

	// ScoreConcurrency bounds how many calls a batch scores at once.
	ScoreConcurrency int `koanf:"score_concurrency" validate:"gte=1"`

	// TaxonomyFile is a YAML taxonomy; empty uses the built-in one.
	TaxonomyFile string `koanf:"taxonomy_file"`

	SimilarityProvider  string `koanf:"similarity_provider" validate:"oneof=lexical openai ollama none"`
	SimilarityModel     string `koanf:"similarity_model"`
	SimilarityBaseURL   string `koanf:"similarity_base_url" validate:"omitempty,url"`
	SimilarityAPIKey    string `koanf:"similarity_api_key" validate:"required_if=SimilarityProvider openai"`
	SimilarityTimeoutMS int    `koanf:"similarity_timeout_ms" validate:"gte=0"`
	EmbeddingCacheSize  int    `koanf:"embedding_cache_size" validate:"gte=1"`

	BreakerMaxFailures int `koanf:"breaker_max_failures" validate:"gte=1"`
	BreakerResetMS     int `koanf:"breaker_reset_ms" validate:"gte=1"`

	StoreDriver string `koanf:"store_driver" validate:"oneof=memory sqlite"`
	StorePath   string `koanf:"store_path" validate:"required_if=StoreDriver sqlite"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace" validate:"omitempty,promname"`
	MetricsSubsystem string `koanf:"metrics_subsystem" validate:"omitempty,promname"`
	// MetricsConstLabels are attached to every metric, e.g. env or instance.
	MetricsConstLabels map[string]string `koanf:"metrics_const_labels" validate:"omitempty,dive,keys,promname,endkeys,required"`
	// MetricsLatencyBucketsMS overrides the latency histogram buckets; empty keeps the built-in set.
	MetricsLatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms" validate:"omitempty,ascending,dive,gt=0"`
}

// New returns a Config with defaults.
func New() *Config {
	th := taxonomy.DefaultThresholds()
	return &Config{
		LogLevel:                   "info",
		LogFormat:                  "text",
		Addr:                       ":9080",
		QueueSize:                  10_000,
		WorkerCount:                runtime.NumCPU(),
		DedupeSize:                 100_000,
		MaxReviewLimit:             100,
		FuzzyThreshold:             th.Fuzzy,
		SemanticThreshold:          th.Semantic,
		KeywordConfidenceThreshold: th.KeywordConfidence,
		SemanticTimeoutMS:          5000,
		ScoreConcurrency:           4,
		SimilarityProvider:         ProviderLexical,
		SimilarityTimeoutMS:        2000,
		EmbeddingCacheSize:         4096,
		BreakerMaxFailures:         5,
		BreakerResetMS:             30_000,
		StoreDriver:                StoreMemory,
		StorePath:                  "data/callqa.db",
		MetricsNamespace:           "callqa",
		MetricsSubsystem:           "scoring",
	}
}

// Thresholds returns the scoring thresholds.
func (c *Config) Thresholds() taxonomy.Thresholds {
	return taxonomy.Thresholds{
		Fuzzy:             c.FuzzyThreshold,
		Semantic:          c.SemanticThreshold,
		KeywordConfidence: c.KeywordConfidenceThreshold,
	}
}

// SemanticTimeout converts SemanticTimeoutMS.
func (c *Config) SemanticTimeout() time.Duration { return ms(c.SemanticTimeoutMS) }

// SimilarityTimeout converts SimilarityTimeoutMS.
func (c *Config) SimilarityTimeout() time.Duration { return ms(c.SimilarityTimeoutMS) }

// BreakerReset converts BreakerResetMS.
func (c *Config) BreakerReset() time.Duration { return ms(c.BreakerResetMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
