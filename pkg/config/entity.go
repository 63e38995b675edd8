package config

import "github.com/hybridmem/memstore/pkg/resolver"

// EntityConfig controls entity resolution thresholds.
type EntityConfig struct {
	// SimilarityThreshold is the cosine-similarity floor for candidate
	// search: cosine_distance(a, b) < 1 - SimilarityThreshold.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// MaxCandidates bounds per-mention candidate search (and therefore
	// per-document LLM adjudication cost).
	MaxCandidates int `yaml:"max_candidates"`

	// FallbackThreshold is the conservative embedding-only similarity floor
	// used when the LLM/provider is unavailable (never create duplicates
	// silently; prefer needs_review=true).
	FallbackThreshold float64 `yaml:"fallback_threshold"`

	// DedupModel is the LLM used for adjudication prompts.
	DedupModel string `yaml:"dedup_model"`
}

// DefaultEntityConfig returns the built-in entity resolution defaults.
func DefaultEntityConfig() *EntityConfig {
	return &EntityConfig{
		SimilarityThreshold: 0.85,
		MaxCandidates:       5,
		FallbackThreshold:   0.95,
		DedupModel:          "gpt-4o-mini",
	}
}

// LoadEntityConfigFromEnv loads entity resolution configuration from the environment.
func LoadEntityConfigFromEnv() (*EntityConfig, error) {
	cfg := DefaultEntityConfig()
	var err error
	if cfg.SimilarityThreshold, err = getEnvFloat("ENTITY_SIMILARITY_THRESHOLD", cfg.SimilarityThreshold); err != nil {
		return nil, err
	}
	if cfg.MaxCandidates, err = getEnvInt("ENTITY_MAX_CANDIDATES", cfg.MaxCandidates); err != nil {
		return nil, err
	}
	cfg.DedupModel = getEnvOrDefault("ENTITY_DEDUP_MODEL", cfg.DedupModel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToResolverConfig adapts the loaded configuration to the resolver
// package's own Config type, keeping the two decoupled.
func (c *EntityConfig) ToResolverConfig() resolver.Config {
	return resolver.Config{
		SimilarityThreshold: c.SimilarityThreshold,
		MaxCandidates:       c.MaxCandidates,
		FallbackThreshold:   c.FallbackThreshold,
		DedupModel:          c.DedupModel,
	}
}

// Validate checks the entity configuration for internal consistency.
func (c *EntityConfig) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold >= 1 {
		return NewValidationError("entity", "similarity_threshold", ErrInvalidValue)
	}
	if c.MaxCandidates < 1 {
		return NewValidationError("entity", "max_candidates", ErrInvalidValue)
	}
	return nil
}
