package config

import (
	"time"

	"github.com/hybridmem/memstore/pkg/embedder"
)

// EmbeddingConfig controls the embedding provider and retry behavior.
type EmbeddingConfig struct {
	Model        string        `yaml:"model"`
	Dims         int           `yaml:"dims"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBatchSize int           `yaml:"max_batch_size"`

	// Retry/backoff for rate-limit and timeout errors (never for
	// authentication/bad-request errors).
	RetryBase       time.Duration `yaml:"retry_base"`
	RetryMultiplier float64       `yaml:"retry_multiplier"`
	RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed"`
}

// DefaultEmbeddingConfig returns the built-in embedding defaults.
func DefaultEmbeddingConfig() *EmbeddingConfig {
	return &EmbeddingConfig{
		Model:           "text-embedding-3-large",
		Dims:            3072,
		Timeout:         30 * time.Second,
		MaxBatchSize:    64,
		RetryBase:       1 * time.Second,
		RetryMultiplier: 2,
		RetryMaxElapsed: 30 * time.Second,
	}
}

// LoadEmbeddingConfigFromEnv loads embedding configuration from the environment.
func LoadEmbeddingConfigFromEnv() (*EmbeddingConfig, error) {
	cfg := DefaultEmbeddingConfig()
	cfg.Model = getEnvOrDefault("EMBEDDING_MODEL", cfg.Model)

	var err error
	if cfg.Dims, err = getEnvInt("EMBEDDING_DIMS", cfg.Dims); err != nil {
		return nil, err
	}
	timeoutMs, err := getEnvInt("EMBEDDING_TIMEOUT_MS", int(cfg.Timeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToEmbedderConfig adapts the loaded configuration to the embedder
// package's own Config type, keeping the two decoupled.
func (c *EmbeddingConfig) ToEmbedderConfig() embedder.Config {
	return embedder.Config{
		Dims:            c.Dims,
		MaxBatchSize:    c.MaxBatchSize,
		RetryBase:       c.RetryBase,
		RetryMultiplier: c.RetryMultiplier,
		RetryMaxElapsed: c.RetryMaxElapsed,
	}
}

// Validate checks the embedding configuration for internal consistency.
func (c *EmbeddingConfig) Validate() error {
	if c.Dims < 1 {
		return NewValidationError("embedding", "dims", ErrInvalidValue)
	}
	if c.Timeout <= 0 {
		return NewValidationError("embedding", "timeout", ErrInvalidValue)
	}
	if c.MaxBatchSize < 1 {
		return NewValidationError("embedding", "max_batch_size", ErrInvalidValue)
	}
	return nil
}
