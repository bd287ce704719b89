package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// Environment variable names.
const (
	EnvPrefix = "CALLQA_"
	EnvConfig = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New)
//  2. YAML file named by CALLQA_CONFIG, if set
//  3. env vars CALLQA_*
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfig))
}

// LoadFile is Load with an explicit config file; an empty path skips the file layer.
func LoadFile(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CALLQA_QUEUE_SIZE -> queue_size; underscores are kept to match the flat keys.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTaxonomy reads the configured taxonomy file, or returns the built-in taxonomy
// when none is set. Malformed entries are logged and skipped.
func (c *Config) LoadTaxonomy(log logger.Logger) (*taxonomy.Taxonomy, error) {
	if c.TaxonomyFile == "" {
		return taxonomy.Default(taxonomy.WithLogger(log)), nil
	}
	return LoadTaxonomyFile(c.TaxonomyFile, log)
}

// LoadTaxonomyFile parses a YAML taxonomy document.
func LoadTaxonomyFile(path string, log logger.Logger) (*taxonomy.Taxonomy, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: taxonomy %s: %w", ErrLoadConfig, path, err)
	}
	var doc taxonomy.Document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: taxonomy %s: %w", ErrLoadConfig, path, err)
	}
	tax, err := taxonomy.FromDocument(doc, taxonomy.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("%w: taxonomy %s: %w", ErrInvalidConfig, path, err)
	}
	return tax, nil
}
