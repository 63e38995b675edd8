package config

import "github.com/hybridmem/memstore/pkg/chunker"

// ChunkerConfig controls how the chunker decides to split an artifact and
// how much trailing overlap consecutive chunks carry.
type ChunkerConfig struct {
	// SinglePieceMax is the token threshold above which an artifact is
	// chunked: should_chunk(text) <=> token_count(text) > SinglePieceMax.
	SinglePieceMax int `yaml:"single_piece_max"`

	// ChunkTarget is the maximum token length of an individual chunk.
	ChunkTarget int `yaml:"chunk_target"`

	// ChunkOverlap is the number of trailing tokens repeated at the start
	// of the next chunk.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// DefaultChunkerConfig returns the built-in chunker defaults.
func DefaultChunkerConfig() *ChunkerConfig {
	return &ChunkerConfig{
		SinglePieceMax: 1200,
		ChunkTarget:    900,
		ChunkOverlap:   100,
	}
}

// LoadChunkerConfigFromEnv loads chunker configuration from the environment.
func LoadChunkerConfigFromEnv() (*ChunkerConfig, error) {
	cfg := DefaultChunkerConfig()
	var err error
	if cfg.SinglePieceMax, err = getEnvInt("CHUNK_THRESHOLD", cfg.SinglePieceMax); err != nil {
		return nil, err
	}
	if cfg.ChunkTarget, err = getEnvInt("CHUNK_TARGET", cfg.ChunkTarget); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToChunkerConfig adapts the loaded configuration to the chunker package's
// own Config type, keeping the two decoupled (chunker has no dependency on
// config).
func (c *ChunkerConfig) ToChunkerConfig() chunker.Config {
	return chunker.Config{
		SinglePieceMax: c.SinglePieceMax,
		ChunkTarget:    c.ChunkTarget,
		ChunkOverlap:   c.ChunkOverlap,
	}
}

// Validate checks the chunker configuration for internal consistency.
func (c *ChunkerConfig) Validate() error {
	if c.SinglePieceMax < 1 {
		return NewValidationError("chunker", "single_piece_max", ErrInvalidValue)
	}
	if c.ChunkTarget < 1 {
		return NewValidationError("chunker", "chunk_target", ErrInvalidValue)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkTarget {
		return NewValidationError("chunker", "chunk_overlap", ErrInvalidValue)
	}
	return nil
}
